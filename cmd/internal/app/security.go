package app

import (
	"errors"
	"fmt"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/security/token"
)

// ErrSecurityPolicy is wrapped by every ValidateSecurityConfig failure.
var ErrSecurityPolicy = errors.New("security policy")

// ValidateSecurityConfig fails startup on configuration that would leave the login flow
// unsafe or silently broken.
func ValidateSecurityConfig(cfg Config) error {
	if _, err := token.SecretFromEnv(token.SecretEnvKey, token.MinSecretBytes); err != nil {
		switch {
		case errors.Is(err, token.ErrSecretMissing):
			return fmt.Errorf("%w: %s is missing", ErrSecurityPolicy, token.SecretEnvKey)
		case errors.Is(err, token.ErrSecretTooShort):
			return fmt.Errorf("%w: %s is too short (min %d bytes)", ErrSecurityPolicy, token.SecretEnvKey, token.MinSecretBytes)
		default:
			return err
		}
	}

	if !cfg.Production() {
		return nil
	}

	// The dev log sender prints links to stdout; production must deliver real mail.
	if cfg.SMTPAddr == "" || cfg.SMTPFrom == "" {
		return fmt.Errorf("%w: JBV_SMTP_ADDR and JBV_SMTP_FROM are required in production", ErrSecurityPolicy)
	}
	if cfg.RegistryURL == "" && len(cfg.AuthorizedEmails) == 0 && !cfg.RegistryDB {
		return fmt.Errorf("%w: JBV_REGISTRY_URL, JBV_REGISTRY_DB or JBV_AUTHORIZED_EMAILS is required in production", ErrSecurityPolicy)
	}
	if cfg.RegistryDB && cfg.RegistryURL == "" && cfg.DatabaseURL == "" {
		return fmt.Errorf("%w: JBV_REGISTRY_DB requires JBV_DATABASE_URL", ErrSecurityPolicy)
	}
	return nil
}
