package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken is returned when a session token fails verification or validation.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// VerifyError records why a token was rejected. It always unwraps to ErrInvalidToken
// so callers never branch on the reason; the reason is for logs.
type VerifyError struct {
	Reason string
	Err    error
}

func (e *VerifyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrInvalidToken.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", ErrInvalidToken.Error(), e.Reason, e.Err)
}

func (e *VerifyError) Unwrap() error { return ErrInvalidToken }

func invalid(reason string, err error) error {
	return &VerifyError{Reason: reason, Err: err}
}
