package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slate/internal/runner"
)

func newSamplesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "samples",
		Short:       "List curated sample prompts for production runs",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(runner.Samples()))
			for _, sample := range runner.Samples() {
				id := sample.ID
				if id == runner.DefaultSampleID {
					id += " (default)"
				}
				rows = append(rows, []string{id, sample.Prompt})
			}
			table := renderTable(
				[]string{"Sample", "Prompt"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
