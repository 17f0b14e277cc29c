// Package magiclink implements the single-use, time-limited credential exchange behind
// email login.
//
// A token moves issued -> consumed or issued -> expired; both are terminal and there is
// no refresh. Consume never distinguishes "expired", "already used" and "never issued":
// all three are ErrInvalidToken.
//
// Three stores share the contract:
//   - MemoryStore: one process only (dev, single instance).
//   - PostgresStore: DELETE ... RETURNING gives atomic get-and-delete across instances.
//   - RedisStore: SET PX + GETDEL, expiry enforced by Redis.
//
// Raw tokens are never used as keys; every store keys records by HMAC-SHA256(token).
package magiclink
