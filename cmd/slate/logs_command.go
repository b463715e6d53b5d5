package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"slate/internal/logs"
	"slate/internal/report"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var runID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display slate logs",
		Long: strings.TrimSpace(`
Display slate logs.

By default the CLI log file is tailed. With --run the JSON transcript of a
single run is tailed instead, which carries every debug event that run
emitted.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var path string
			if id := strings.TrimSpace(runID); id != "" {
				path = filepath.Join(report.RunDir(cfg.Paths.RunsDir, id), "run.log")
			} else {
				path, err = ctx.logFilePath()
				if err != nil {
					return err
				}
			}

			initialLimit := lines
			if initialLimit < 0 {
				initialLimit = 0
			}
			initialOffset := int64(-1)
			if initialLimit == 0 {
				initialOffset = 0
			}

			cmdCtx := cmd.Context()
			offset := initialOffset
			limit := initialLimit
			printed := false

			for {
				result, err := logs.Tail(cmdCtx, path, logs.TailOptions{
					Offset: offset,
					Limit:  limit,
					Follow: follow,
					Wait:   time.Second,
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, line := range result.Lines {
					fmt.Fprintln(cmd.OutOrStdout(), line)
					printed = true
				}
				offset = result.Offset
				limit = 0
				if !follow {
					if !printed {
						fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
					}
					return nil
				}
				select {
				case <-cmdCtx.Done():
					return nil
				default:
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Tail the transcript of this run instead of the CLI log")
	return cmd
}
