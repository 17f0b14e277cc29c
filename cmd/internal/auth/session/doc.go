// Package session implements the microsite's session cookie value.
//
// Sessions are stateless: the cookie carries an HS256 JWT whose subject is the
// email-derived user id. Nothing is stored server-side, so logout only clears the
// cookie and a token stays valid until its exp (24h by default).
//
// The signing key is derived from JBV_SESSION_SECRET with HKDF, so rotating the
// secret invalidates every outstanding session.
//
// Transport (cookie handling, HTTP middleware) lives in authapi.
package session
