package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := app.Migrate(ctx, pool); err != nil {
			log.Error("ctl.migrate.fail", "err", err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
