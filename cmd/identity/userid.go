package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// UserIDLen is the number of hex characters kept from the email digest.
const UserIDLen = 16

// DeriveUserID returns the stable opaque id for an email.
// The input is canonicalized first, so "Jane@Fund.com " and "jane@fund.com" share an id.
func DeriveUserID(email string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])[:UserIDLen]
}
