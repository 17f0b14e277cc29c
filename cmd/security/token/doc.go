// Package token provides the secret-handling primitives of the microsite.
//
// It is the single source of truth for:
//   - opaque magic-link token generation (256 bits, base64url),
//   - token hashing before storage (HMAC-SHA256 hex, so a leaked store does not leak
//     redeemable links),
//   - reading the server secret from the environment with a minimum-size policy,
//   - deriving independent per-purpose keys from that secret (HKDF-SHA256).
//
// Environment:
//   - JBV_SESSION_SECRET: the server secret (>= 32 bytes).
package token
