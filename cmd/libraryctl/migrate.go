package main

import "github.com/spf13/cobra"

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users and books tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.open(); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Schema is up to date.\n")
			return nil
		},
	}
}
