package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/bootstrap"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.load(cmd.Context())
			if err != nil {
				return err
			}

			applied, err := bootstrap.Migrate(cmd.Context(), d.store, d.logger)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				_, _ = fmt.Fprintf(out, "%s: schema up to date\n", d.driver)
				return nil
			}
			for _, name := range applied {
				_, _ = fmt.Fprintf(out, "%s: applied %s\n", d.driver, name)
			}
			return nil
		},
	}
}
