package authapi

import (
	"context"
	"time"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/auth/session"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/directory"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/mailer"
)

// AuthorizationGate decides whether an email may receive a link.
// Implemented by *registry.Gate.
type AuthorizationGate interface {
	IsAuthorizedEmail(ctx context.Context, email string) (bool, error)
}

// LinkStore issues and redeems magic-link tokens. Implemented by the magiclink stores.
type LinkStore interface {
	Issue(ctx context.Context, now time.Time, email string) (string, error)
	Consume(ctx context.Context, now time.Time, token string) (string, error)
}

// SessionCodec creates and verifies session cookie values. Implemented by *session.Codec.
type SessionCodec interface {
	Create(email string, now time.Time) (string, time.Time, error)
	Verify(token string, now time.Time) (session.Claims, bool)
	TTL() time.Duration
}

// ProfileResolver enriches claims for display. Implemented by *directory.Directory.
type ProfileResolver interface {
	ResolveUserProfile(email, userID string) directory.Profile
}

// notConfiguredSender stands in when no mail backend is configured, so the failure
// surfaces as a configuration error on first use instead of a nil dereference.
type notConfiguredSender struct{}

func (notConfiguredSender) SendMagicLink(context.Context, mailer.MagicLinkMessage) error {
	return mailer.ErrNotConfigured
}
