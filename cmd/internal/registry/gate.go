package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/identity"
)

// Lookup answers a single registry query for a canonical email.
type Lookup interface {
	Lookup(ctx context.Context, email string) (bool, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, email string) (bool, error)

func (f LookupFunc) Lookup(ctx context.Context, email string) (bool, error) { return f(ctx, email) }

const (
	DefaultAttemptTimeout = 8 * time.Second
	DefaultMaxRetries     = 2
	DefaultBaseDelay      = 200 * time.Millisecond
)

// Gate checks emails against a registry.
type Gate struct {
	lookup         Lookup
	attemptTimeout time.Duration
	maxRetries     uint64
	baseDelay      time.Duration
	log            *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithAttemptTimeout bounds each lookup attempt.
func WithAttemptTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.attemptTimeout = d
		}
	}
}

// WithRetries sets the retry count and the first backoff delay (doubling afterwards).
func WithRetries(max uint64, base time.Duration) GateOption {
	return func(g *Gate) {
		g.maxRetries = max
		if base > 0 {
			g.baseDelay = base
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(log *slog.Logger) GateOption {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// NewGate constructs a Gate. A nil lookup yields a Gate that always returns ErrNotConfigured.
func NewGate(lookup Lookup, opts ...GateOption) *Gate {
	g := &Gate{
		lookup:         lookup,
		attemptTimeout: DefaultAttemptTimeout,
		maxRetries:     DefaultMaxRetries,
		baseDelay:      DefaultBaseDelay,
		log:            slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// IsAuthorizedEmail reports whether email is in the registry.
// Errors are ErrNotConfigured or wrap ErrUnavailable; a false result is always a definite "no".
func (g *Gate) IsAuthorizedEmail(ctx context.Context, email string) (bool, error) {
	if g == nil || g.lookup == nil {
		return false, ErrNotConfigured
	}

	email = identity.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}

	var (
		authorized bool
		attempt    int
	)
	backoff := retry.WithMaxRetries(g.maxRetries, retry.NewExponential(g.baseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		actx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
		defer cancel()

		ok, err := g.lookup.Lookup(actx, email)
		if err == nil {
			authorized = ok
			return nil
		}
		if errors.Is(err, ErrNotConfigured) {
			return err
		}
		if isTransient(ctx, err) {
			g.log.Warn("registry.lookup.retry", "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return false, err
		}
		return false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return authorized, nil
}

// isTransient classifies an attempt error. parent is the caller's context: once it is done
// there is no point retrying.
func isTransient(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
