package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// SecretEnvKey is the env var name for the server secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SecretEnvKey = "JBV_SESSION_SECRET"

	// MinSecretBytes is the minimum accepted secret size (HMAC-SHA256 key strength).
	MinSecretBytes = 32

	// DefaultTokenBytes gives 256 bits of entropy.
	DefaultTokenBytes = 32
)

// Key derivation purposes. Changing one invalidates everything derived from it.
const (
	PurposeSession   = "jbv/session/v1"
	PurposeMagicLink = "jbv/magic-link/v1"
)

// NewOpaqueToken returns a cryptographically random, URL-safe (base64url, no padding) token.
func NewOpaqueToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = DefaultTokenBytes
	}

	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// SecretFromEnv returns the trimmed secret stored under key, enforcing a minimum byte length.
// If the env var is missing/blank -> ErrSecretMissing.
// If too short -> ErrSecretTooShort.
func SecretFromEnv(key string, minBytes int) ([]byte, error) {
	return ParseSecret(os.Getenv(key), minBytes)
}

// ParseSecret applies the SecretFromEnv policy to a raw value.
// We measure bytes (not runes) because the secret is used as raw key material.
func ParseSecret(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrSecretMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrSecretTooShort
	}
	return b, nil
}

// DeriveKey expands secret into an n-byte key bound to purpose (HKDF-SHA256, no salt).
func DeriveKey(secret []byte, purpose string, n int) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrSecretMissing
	}
	if n <= 0 {
		n = sha256.Size
	}
	out := make([]byte, n)
	r := hkdf.New(sha256.New, secret, nil, []byte(purpose))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("token: derive %s key: %w", purpose, err)
	}
	return out, nil
}
