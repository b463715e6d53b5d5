package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slate/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Run environment checks without starting a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)

			if jsonOut {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Preflight Checks", colorize) {
				fmt.Fprintln(out, line)
			}

			failed := 0
			for _, result := range results {
				kind := statusOK
				switch {
				case result.Passed:
					kind = statusOK
				case result.Optional:
					kind = statusWarn
				default:
					kind = statusError
					failed++
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			if failed > 0 {
				return fmt.Errorf("%d preflight check(s) failed", failed)
			}
			fmt.Fprintln(out, "All required checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit check results as JSON")
	return cmd
}
