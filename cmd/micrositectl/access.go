package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/registry"
)

var (
	grantExpiresIn time.Duration
	grantNote      string
)

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Manage the investor_access registry",
	Long: `Grant, revoke and check investor access in Postgres.

The server reads this table when started with JBV_REGISTRY_DB=true.`,
}

var accessGrantCmd = &cobra.Command{
	Use:   "grant <email>",
	Short: "Grant (or re-activate) access for an email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLookup(cmd.Context(), func(ctx context.Context, l *registry.PostgresLookup) error {
			var expiresAt *time.Time
			if grantExpiresIn > 0 {
				t := time.Now().UTC().Add(grantExpiresIn)
				expiresAt = &t
			}
			if err := l.Grant(ctx, args[0], expiresAt, grantNote); err != nil {
				return err
			}
			if expiresAt != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "granted %s until %s\n", args[0], expiresAt.Format(time.RFC3339))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "granted %s\n", args[0])
			}
			return nil
		})
	},
}

var accessRevokeCmd = &cobra.Command{
	Use:   "revoke <email>",
	Short: "Revoke access for an email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLookup(cmd.Context(), func(ctx context.Context, l *registry.PostgresLookup) error {
			changed, err := l.Revoke(ctx, args[0])
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s had no active grant (already revoked or expired)\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
			return nil
		})
	},
}

var accessCheckCmd = &cobra.Command{
	Use:   "check <email>",
	Short: "Report whether an email currently has access",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLookup(cmd.Context(), func(ctx context.Context, l *registry.PostgresLookup) error {
			ok, err := l.Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: authorized\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: not authorized\n", args[0])
			}
			return nil
		})
	},
}

func init() {
	accessGrantCmd.Flags().DurationVar(&grantExpiresIn, "expires-in", 0, "Grant lifetime, e.g. 2160h (default: no expiry)")
	accessGrantCmd.Flags().StringVar(&grantNote, "note", "", "Free-form note stored with the grant")

	accessCmd.AddCommand(accessGrantCmd)
	accessCmd.AddCommand(accessRevokeCmd)
	accessCmd.AddCommand(accessCheckCmd)
}

func withLookup(ctx context.Context, fn func(context.Context, *registry.PostgresLookup) error) error {
	pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	l, err := registry.NewPostgresLookup(pool)
	if err != nil {
		return err
	}
	if err := fn(ctx, l); err != nil {
		log.Error("ctl.access.fail", "err", err)
		return err
	}
	return nil
}
