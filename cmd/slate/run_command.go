package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"slate/internal/logging"
	"slate/internal/report"
	"slate/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var pipelineID string
	var scriptPath string
	var sampleID string
	var prompt string
	var seed int64
	var temporalMode string
	var dryRun bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a text-to-video pipeline run",
		Long: strings.TrimSpace(`
Execute a text-to-video pipeline run.

Without --script this runs the production pipeline: one clip rendered from a
curated sample prompt (or --prompt) through the workflow named by --pipeline.
With --script it runs the narrative pipeline: the script is split into scenes,
each scene is rendered, and the clips are stitched into one video.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			req := runner.Request{
				Type:         runner.TypeProduction,
				PipelineID:   pipelineID,
				SampleID:     sampleID,
				Prompt:       prompt,
				TemporalMode: temporalMode,
				Verbose:      verbose,
				DryRun:       dryRun,
			}
			if strings.TrimSpace(scriptPath) != "" {
				req.Type = runner.TypeNarrative
				req.ScriptPath = scriptPath
				req.PipelineID = ""
			}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stderr", filepath.Join(cfg.Paths.LogDir, "slate.log")},
			})
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			r, err := runner.New(cfg, logger)
			if err != nil {
				return err
			}

			resp := r.Execute(cmd.Context(), req)
			out := cmd.OutOrStdout()

			if dryRun {
				if !resp.Success {
					return errors.New(resp.Error)
				}
				fmt.Fprintln(out, "Planned steps:")
				for i, step := range resp.PlannedSteps {
					fmt.Fprintf(out, "  %d. %s\n", i+1, step)
				}
				return nil
			}

			if resp.RunID != "" {
				runDir := report.RunDir(cfg.Paths.RunsDir, resp.RunID)
				fmt.Fprintf(out, "Run ID:  %s\n", resp.RunID)
				fmt.Fprintf(out, "Summary: %s\n", report.SummaryPath(runDir))
				fmt.Fprintf(out, "Report:  %s\n", report.ReportPath(runDir))
			}
			if !resp.Success {
				return errors.New(resp.Error)
			}
			fmt.Fprintln(out, "Run completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&pipelineID, "pipeline", "text-to-video", "Workflow profile for production runs")
	cmd.Flags().StringVar(&scriptPath, "script", "", "Scene script path; switches to the narrative pipeline")
	cmd.Flags().StringVar(&sampleID, "sample", "", "Curated sample prompt ID (see `slate samples`)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt override for production runs")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Generation seed for reproducible reruns")
	cmd.Flags().StringVar(&temporalMode, "temporal-mode", "", "Temporal smoothing override: on, off, auto, or adaptive")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the planned step order without running")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log the resolved plan before execution")
	return cmd
}
