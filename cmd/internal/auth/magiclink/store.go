package magiclink

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/security/token"
)

// DefaultTTL is how long an emailed link stays redeemable.
const DefaultTTL = 15 * time.Minute

var (
	// ErrInvalidToken covers unknown, expired and already-consumed tokens alike.
	ErrInvalidToken = errors.New("magic link invalid or expired")

	// ErrInvalidInput is returned for empty emails or misconfigured stores.
	ErrInvalidInput = errors.New("invalid input")
)

// Record is what a store keeps per issued token.
type Record struct {
	Email     string
	ExpiresAt time.Time
}

// Expired reports whether the record is no longer redeemable at now.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store issues and redeems magic-link tokens.
type Store interface {
	// Issue records a new token for email and returns the raw token for the link.
	Issue(ctx context.Context, now time.Time, email string) (string, error)

	// Consume redeems token exactly once and returns its email.
	Consume(ctx context.Context, now time.Time, token string) (string, error)

	Close() error
}

type settings struct {
	ttl        time.Duration
	hashKey    []byte
	tokenBytes int
	schema     string
	keyPrefix  string
}

// Option configures a store.
type Option func(*settings) error

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) error {
		if ttl <= 0 {
			return ErrInvalidInput
		}
		s.ttl = ttl
		return nil
	}
}

// WithHashKey sets the HMAC key used to derive storage keys from raw tokens.
// Shared stores (Postgres, Redis) require it so every instance computes the same keys.
func WithHashKey(key []byte) Option {
	return func(s *settings) error {
		if len(key) == 0 {
			return ErrInvalidInput
		}
		s.hashKey = append([]byte(nil), key...)
		return nil
	}
}

// WithTokenBytes overrides the token entropy (minimum 32 bytes).
func WithTokenBytes(n int) Option {
	return func(s *settings) error {
		if n < token.DefaultTokenBytes {
			return ErrInvalidInput
		}
		s.tokenBytes = n
		return nil
	}
}

// WithSchema sets the DB schema used by PostgresStore (default: "microsite").
func WithSchema(schema string) Option {
	return func(s *settings) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return ErrInvalidInput
		}
		s.schema = schema
		return nil
	}
}

// WithKeyPrefix sets the key namespace used by RedisStore (default: "jbv:magic:").
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) error {
		if strings.TrimSpace(prefix) == "" {
			return ErrInvalidInput
		}
		s.keyPrefix = prefix
		return nil
	}
}

func newSettings(opts []Option) (settings, error) {
	s := settings{
		ttl:        DefaultTTL,
		tokenBytes: token.DefaultTokenBytes,
		schema:     "microsite",
		keyPrefix:  "jbv:magic:",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&s); err != nil {
			return settings{}, err
		}
	}
	return s, nil
}

func (s settings) storageKey(raw string) string {
	return token.HashHMACSHA256Hex(raw, s.hashKey)
}

// newToken returns the raw token and its storage key.
func (s settings) newToken() (string, string, error) {
	raw, err := token.NewOpaqueToken(s.tokenBytes)
	if err != nil {
		return "", "", err
	}
	return raw, s.storageKey(raw), nil
}

func normalizeRawToken(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	// base64url of >= 32 bytes is >= 43 chars; anything shorter was never issued.
	if len(raw) < 43 || len(raw) > 256 {
		return "", false
	}
	return raw, true
}
