// Package registry answers "may this email receive a login link?".
//
// Gate wraps a Lookup (HTTP registry or static allowlist) with per-attempt timeouts and
// bounded exponential backoff. A registry that cannot answer yields ErrUnavailable and is
// never reported as "not authorized".
package registry
