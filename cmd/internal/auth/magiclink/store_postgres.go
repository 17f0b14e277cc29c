package magiclink

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists magic links in PostgreSQL (table <schema>.magic_links).
// The pool is owned by the caller; Close is a no-op.
type PostgresStore struct {
	settings

	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore. WithHashKey is required.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) (*PostgresStore, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	if pool == nil || len(s.hashKey) == 0 {
		return nil, ErrInvalidInput
	}
	return &PostgresStore{settings: s, pool: pool}, nil
}

// Close is a no-op; the app owns the pool lifecycle.
func (s *PostgresStore) Close() error { return nil }

// Issue inserts a new link and purges expired ones in the same statement.
func (s *PostgresStore) Issue(ctx context.Context, now time.Time, email string) (string, error) {
	if s == nil || s.pool == nil {
		return "", ErrInvalidInput
	}
	if strings.TrimSpace(email) == "" {
		return "", ErrInvalidInput
	}

	raw, key, err := s.newToken()
	if err != nil {
		return "", err
	}

	links := pgIdent(s.schema, "magic_links")
	_, err = s.pool.Exec(ctx,
		`WITH purged AS (
		     DELETE FROM `+links+` WHERE expires_at <= $3
		 )
		 INSERT INTO `+links+` (token_hash, email, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		key,
		email,
		now.UTC(),
		now.Add(s.ttl).UTC(),
	)
	if err != nil {
		return "", err
	}
	return raw, nil
}

// Consume deletes the row and returns it in one statement; concurrent callers race on the
// row lock and at most one sees it.
func (s *PostgresStore) Consume(ctx context.Context, now time.Time, raw string) (string, error) {
	if s == nil || s.pool == nil {
		return "", ErrInvalidInput
	}
	raw, ok := normalizeRawToken(raw)
	if !ok {
		return "", ErrInvalidToken
	}

	links := pgIdent(s.schema, "magic_links")

	var rec Record
	err := s.pool.QueryRow(ctx,
		`DELETE FROM `+links+`
		  WHERE token_hash = $1
		  RETURNING email, expires_at`,
		s.storageKey(raw),
	).Scan(&rec.Email, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidToken
		}
		return "", err
	}

	if rec.Expired(now) {
		return "", ErrInvalidToken
	}
	return rec.Email, nil
}

// PurgeExpired removes expired rows and reports how many were deleted.
func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrInvalidInput
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+pgIdent(s.schema, "magic_links")+` WHERE expires_at <= $1`,
		now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
