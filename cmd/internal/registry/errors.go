package registry

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable means the registry could not answer after retries.
	ErrUnavailable = errors.New("registry unavailable")

	// ErrNotConfigured means no registry is configured (deployment error, not a runtime failure).
	ErrNotConfigured = errors.New("registry not configured")

	// ErrTransient marks failures worth retrying (5xx, 429, network, attempt timeout).
	ErrTransient = errors.New("registry transient failure")
)

// StatusError is a non-2xx registry response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("registry: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("registry: HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap returns ErrTransient for retryable statuses.
func (e *StatusError) Unwrap() error {
	if e.Transient() {
		return ErrTransient
	}
	return nil
}

// Transient reports whether the status is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}
