package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/auth/magiclink"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/registry"
)

func integrationConfig(t *testing.T) Config {
	t.Helper()
	dsn := os.Getenv("JBV_DATABASE_URL")
	if dsn == "" {
		t.Skip("integration test skipped: JBV_DATABASE_URL is not set")
	}
	cfg := LoadConfig()
	cfg.DatabaseURL = dsn
	return cfg
}

func TestMigrate_IdempotentAndWired(t *testing.T) {
	cfg := integrationConfig(t)
	ctx := context.Background()

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		t.Fatalf("NewDBPool: %v", err)
	}
	defer pool.Close()

	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, pool); err != nil {
			t.Fatalf("Migrate run %d: %v", i+1, err)
		}
	}

	for _, table := range []string{"magic_links", "audit_log", "investor_access"} {
		var exists bool
		if err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'microsite' AND table_name = $1)`,
			table,
		).Scan(&exists); err != nil || !exists {
			t.Fatalf("table microsite.%s missing (err=%v)", table, err)
		}
	}

	// Expired links are removed by the purge loop's single pass.
	store, err := magiclink.NewPostgresStore(pool, magiclink.WithHashKey([]byte("integration-key")))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if _, err := store.Issue(ctx, past, "purge@fund.com"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	purgeOnce(ctx, store, time.Now(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	var left int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM microsite.magic_links WHERE email = 'purge@fund.com'`).Scan(&left); err != nil {
		t.Fatalf("count: %v", err)
	}
	if left != 0 {
		t.Fatalf("expired links left after purge: %d", left)
	}

	// JBV_REGISTRY_DB routes the gate to investor_access.
	lookup, err := registry.NewPostgresLookup(pool)
	if err != nil {
		t.Fatalf("NewPostgresLookup: %v", err)
	}
	email := "gate-" + time.Now().Format("150405.000000") + "@fund.com"
	if err := lookup.Grant(ctx, email, nil, "integration"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DELETE FROM microsite.investor_access WHERE email = $1`, email) })

	cfg.RegistryURL = ""
	cfg.RegistryDB = true
	cfg.AuthorizedEmails = nil
	gate, err := newGate(cfg, pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newGate: %v", err)
	}
	ok, err := gate.IsAuthorizedEmail(ctx, email)
	if err != nil || !ok {
		t.Fatalf("granted email not authorized: ok=%v err=%v", ok, err)
	}
	if ok, _ := gate.IsAuthorizedEmail(ctx, "nobody@fund.com"); ok {
		t.Fatalf("unknown email authorized")
	}
}
