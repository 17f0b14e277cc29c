package session

import (
	"os"
	"strings"
	"time"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/security/token"
)

// DefaultTTL is the session lifetime; the cookie Max-Age matches it.
const DefaultTTL = 24 * time.Hour

// Config defines runtime configuration for session tokens.
type Config struct {
	// Issuer is the value set in the "iss" claim and required on verify.
	Issuer string

	// TTL is the lifetime of a session token.
	TTL time.Duration

	// ClockSkew is the leeway applied to exp/iat checks.
	ClockSkew time.Duration

	// Secret is the raw server secret; the signing key is derived from it.
	Secret []byte
}

// DefaultConfig returns defaults without a secret.
func DefaultConfig() Config {
	return Config{
		Issuer:    "jbv-microsite",
		TTL:       DefaultTTL,
		ClockSkew: 30 * time.Second,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - JBV_SESSION_SECRET (>= 32 bytes)
//
// Optional:
//   - JBV_SESSION_ISSUER
//   - JBV_SESSION_TTL
//   - JBV_SESSION_CLOCK_SKEW
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("JBV_SESSION_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("JBV_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TTL = d
	}

	if v := os.Getenv("JBV_SESSION_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 || d > 5*time.Minute {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	secret, err := token.SecretFromEnv(token.SecretEnvKey, token.MinSecretBytes)
	if err != nil {
		return Config{}, ErrConfig
	}
	cfg.Secret = secret

	return cfg, nil
}

// Validate checks invariants NewCodec relies on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Issuer) == "" || c.TTL <= 0 || c.ClockSkew < 0 {
		return ErrConfig
	}
	if len(c.Secret) < token.MinSecretBytes {
		return ErrConfig
	}
	return nil
}
