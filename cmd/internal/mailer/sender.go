// Package mailer delivers magic-link emails.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable means delivery failed after retries (or permanently).
	ErrUnavailable = errors.New("email delivery unavailable")

	// ErrNotConfigured means no delivery backend is configured.
	ErrNotConfigured = errors.New("mailer not configured")

	// ErrInvalidMessage is returned for messages that must not be sent (bad recipient, empty link).
	ErrInvalidMessage = errors.New("invalid message")
)

// MagicLinkMessage is the content of a login email.
type MagicLinkMessage struct {
	To        string
	Link      string
	ExpiresIn time.Duration
}

// Sender delivers login emails.
type Sender interface {
	SendMagicLink(ctx context.Context, msg MagicLinkMessage) error
}

// SendError wraps a delivery failure. It matches both ErrUnavailable and the cause.
type SendError struct {
	Attempts int
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("mailer: send failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *SendError) Unwrap() []error { return []error{ErrUnavailable, e.Err} }
