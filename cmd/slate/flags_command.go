package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slate/internal/flags"
)

func newFlagsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Show policy guard feature flags",
		Long: "Show the resolved state of every policy guard feature flag.\n\n" +
			"Flags resolve in order: built-in default, [flags] config section, then\n" +
			"the per-flag environment variable shown in the Env column.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := flags.NewStore(cfg.Flags)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, store.Snapshot())
			}

			names := store.Names()
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				envVar := flags.EnvVar(name)
				env := envVar
				if value, ok := os.LookupEnv(envVar); ok {
					env = fmt.Sprintf("%s=%s", envVar, value)
				}
				rows = append(rows, []string{name, string(store.State(name)), env})
			}
			table := renderTable(
				[]string{"Flag", "State", "Env"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit flag states as JSON")
	return cmd
}
