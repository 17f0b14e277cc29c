package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/app"
)

var (
	databaseURL string

	cfg app.Config
	log *slog.Logger
)

var errNoDatabase = errors.New("JBV_DATABASE_URL (or --database-url) is required")

var rootCmd = &cobra.Command{
	Use:   "micrositectl",
	Short: "Operate the JBV investor microsite",
	Long: `micrositectl manages the microsite's Postgres schema and the investor_access
registry, and runs an end-to-end login smoke check against a deployed server.

Configuration is read from the same JBV_* environment variables as the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = app.LoadConfig()
		if databaseURL != "" {
			cfg.DatabaseURL = databaseURL
		}
		log = app.NewLogger(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres URL (default: JBV_DATABASE_URL)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(accessCmd)
	rootCmd.AddCommand(smokeCmd)
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errNoDatabase
	}
	return app.NewDBPool(ctx, cfg)
}
