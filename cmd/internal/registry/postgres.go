package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/identity"
)

// PostgresLookup answers from <schema>.investor_access. A grant counts while it is neither
// revoked nor past expires_at (NULL means no expiry).
type PostgresLookup struct {
	pool   *pgxpool.Pool
	schema string
	now    func() time.Time
}

// PostgresOption configures PostgresLookup.
type PostgresOption func(*PostgresLookup) error

// WithPostgresSchema sets the schema holding investor_access (default "microsite").
func WithPostgresSchema(schema string) PostgresOption {
	return func(l *PostgresLookup) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return ErrNotConfigured
		}
		l.schema = schema
		return nil
	}
}

// NewPostgresLookup constructs a PostgresLookup. A nil pool is ErrNotConfigured.
func NewPostgresLookup(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresLookup, error) {
	l := &PostgresLookup{pool: pool, schema: "microsite", now: time.Now}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.pool == nil {
		return nil, ErrNotConfigured
	}
	return l, nil
}

func (l *PostgresLookup) Lookup(ctx context.Context, email string) (bool, error) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}

	var one int
	err := l.pool.QueryRow(ctx,
		`SELECT 1
		   FROM `+l.table()+`
		  WHERE email = $1
		    AND revoked_at IS NULL
		    AND (expires_at IS NULL OR expires_at > $2)
		  LIMIT 1`,
		email, l.now().UTC(),
	).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	// Connection-level failures are retried by the Gate.
	return false, errors.Join(ErrTransient, err)
}

// Grant inserts or reactivates access for email.
func (l *PostgresLookup) Grant(ctx context.Context, email string, expiresAt *time.Time, note string) error {
	email = identity.NormalizeEmail(email)
	if !identity.ValidEmail(email) {
		return errors.New("registry: invalid email")
	}
	var notePtr *string
	if n := strings.TrimSpace(note); n != "" {
		notePtr = &n
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO `+l.table()+` (email, granted_at, expires_at, revoked_at, note)
		 VALUES ($1, $2, $3, NULL, $4)
		 ON CONFLICT (email) DO UPDATE
		    SET granted_at = EXCLUDED.granted_at,
		        expires_at = EXCLUDED.expires_at,
		        revoked_at = NULL,
		        note       = COALESCE(EXCLUDED.note, `+l.table()+`.note)`,
		email, l.now().UTC(), expiresAt, notePtr,
	)
	return err
}

// Revoke disables access for email. It reports whether an active grant was changed;
// an already expired grant is left untouched and reports false.
func (l *PostgresLookup) Revoke(ctx context.Context, email string) (bool, error) {
	email = identity.NormalizeEmail(email)
	tag, err := l.pool.Exec(ctx,
		`UPDATE `+l.table()+`
		    SET revoked_at = $2
		  WHERE email = $1
		    AND revoked_at IS NULL
		    AND (expires_at IS NULL OR expires_at > $2)`,
		email, l.now().UTC(),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (l *PostgresLookup) table() string {
	return pgx.Identifier{l.schema, "investor_access"}.Sanitize()
}
