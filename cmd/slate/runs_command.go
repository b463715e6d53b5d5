package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"slate/internal/ledger"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := ledger.Open(cfg.Paths.LedgerPath)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd, records)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.RunID,
					rec.PipelineID,
					string(rec.Status),
					formatQA(rec),
					formatRunDuration(rec.DurationMS),
					strconv.Itoa(rec.WarningCount),
					formatFinished(rec.FinishedAt),
				})
			}
			table := renderTable(
				[]string{"Run", "Pipeline", "Status", "QA", "Duration", "Warnings", "Finished"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit ledger records as JSON")
	return cmd
}

func formatQA(rec *ledger.Record) string {
	if rec.QAVerdict == "" {
		return "-"
	}
	if rec.QAScore > 0 {
		return fmt.Sprintf("%s (%.2f)", rec.QAVerdict, rec.QAScore)
	}
	return rec.QAVerdict
}

func formatRunDuration(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

func formatFinished(at *time.Time) string {
	if at == nil || at.IsZero() {
		return "-"
	}
	return humanize.Time(*at)
}
