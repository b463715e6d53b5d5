package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"slate/internal/config"
	"slate/internal/report"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Print the human-readable report for a finished run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var requested string
			if len(args) > 0 {
				requested = strings.TrimSpace(args[0])
			}
			runID, err := resolveFinishedRunID(cfg, requested)
			if err != nil {
				return err
			}
			runDir := report.RunDir(cfg.Paths.RunsDir, runID)

			if jsonOut {
				data, err := os.ReadFile(report.SummaryPath(runDir))
				if err != nil {
					return fmt.Errorf("read run summary: %w", err)
				}
				summary, err := report.ParseSummary(data)
				if err != nil {
					return err
				}
				return writeJSON(cmd, summary)
			}

			data, err := os.ReadFile(report.ReportPath(runDir))
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("no report for run %s; the run may still be in progress", runID)
				}
				return fmt.Errorf("read run report: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the full run summary as JSON")
	return cmd
}

// resolveFinishedRunID resolves the run the report command targets. The
// latest pointer is only written when a run finishes, so it always names a
// run whose report exists.
func resolveFinishedRunID(cfg *config.Config, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	data, err := os.ReadFile(report.LatestPath(cfg.Paths.RunsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New("no finished runs yet; start one with `slate run`")
		}
		return "", fmt.Errorf("read latest run pointer: %w", err)
	}
	lite, err := report.ParseLiteSummary(data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(lite.RunID) == "" {
		return "", errors.New("latest run pointer has no run ID")
	}
	return lite.RunID, nil
}
