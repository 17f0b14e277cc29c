package magiclink

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgresStore_Integration(t *testing.T) {
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

	if _, err := pool.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS microsite;
		CREATE TABLE IF NOT EXISTS microsite.magic_links (
			token_hash text PRIMARY KEY,
			email      text NOT NULL,
			created_at timestamptz NOT NULL,
			expires_at timestamptz NOT NULL
		);`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	runStoreContract(t,
		func(t *testing.T) Store {
			s, err := NewPostgresStore(pool, WithHashKey(testHashKey))
			if err != nil {
				t.Fatalf("NewPostgresStore: %v", err)
			}
			return s
		},
		func(base time.Time) time.Time { return base.Add(DefaultTTL) },
	)

	s, err := NewPostgresStore(pool, WithHashKey(testHashKey))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	if _, err := s.PurgeExpired(ctx, time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
}
