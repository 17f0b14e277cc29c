package registry

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgresLookup_Integration(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("JBV_DATABASE_URL"))
	if dsn == "" {
		t.Skip("integration test skipped: JBV_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	schema := "registry_it_" + strings.ToLower(time.Now().UTC().Format("20060102150405.000000000"))
	schema = strings.ReplaceAll(schema, ".", "_")
	if _, err := pool.Exec(ctx, `
		CREATE SCHEMA `+schema+`;
		CREATE TABLE `+schema+`.investor_access (
			email      text PRIMARY KEY,
			granted_at timestamptz NOT NULL,
			expires_at timestamptz,
			revoked_at timestamptz,
			note       text
		);`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DROP SCHEMA `+schema+` CASCADE`)
	})

	l, err := NewPostgresLookup(pool, WithPostgresSchema(schema))
	if err != nil {
		t.Fatalf("NewPostgresLookup: %v", err)
	}
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if ok, err := l.Lookup(ctx, "jane@fund.com"); err != nil || ok {
		t.Fatalf("before grant: ok=%v err=%v", ok, err)
	}

	if err := l.Grant(ctx, " Jane@Fund.com ", nil, "Fund I LP"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if ok, err := l.Lookup(ctx, "jane@fund.com"); err != nil || !ok {
		t.Fatalf("after grant: ok=%v err=%v", ok, err)
	}

	changed, err := l.Revoke(ctx, "jane@fund.com")
	if err != nil || !changed {
		t.Fatalf("Revoke: changed=%v err=%v", changed, err)
	}
	if ok, _ := l.Lookup(ctx, "jane@fund.com"); ok {
		t.Fatalf("revoked grant still authorizes")
	}

	exp := now.Add(time.Hour)
	if err := l.Grant(ctx, "jane@fund.com", &exp, ""); err != nil {
		t.Fatalf("re-Grant: %v", err)
	}
	if ok, _ := l.Lookup(ctx, "jane@fund.com"); !ok {
		t.Fatalf("re-granted access not active")
	}
	now = now.Add(2 * time.Hour)
	if ok, _ := l.Lookup(ctx, "jane@fund.com"); ok {
		t.Fatalf("expired grant still authorizes")
	}
	if changed, err := l.Revoke(ctx, "jane@fund.com"); err != nil || changed {
		t.Fatalf("Revoke of expired grant: changed=%v err=%v", changed, err)
	}

	if _, err := NewPostgresLookup(nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("nil pool err=%v", err)
	}
}
