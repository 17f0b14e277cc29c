package session

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/identity"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/security/token"
)

// Claims is the decoded content of a valid session token.
type Claims struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type jwtClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Codec creates and verifies session tokens.
type Codec struct {
	issuer string
	ttl    time.Duration
	skew   time.Duration
	key    []byte
	log    *slog.Logger
}

// NewCodec derives the signing key from cfg.Secret. A nil logger discards verify diagnostics.
func NewCodec(cfg Config, log *slog.Logger) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	key, err := token.DeriveKey(cfg.Secret, token.PurposeSession, 32)
	if err != nil {
		return nil, ErrConfig
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Codec{
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		skew:   cfg.ClockSkew,
		key:    key,
		log:    log,
	}, nil
}

// TTL returns the configured session lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Create signs a token for email (canonicalized) valid from now for the configured TTL.
func (c *Codec) Create(email string, now time.Time) (string, time.Time, error) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return "", time.Time{}, ErrInvalidToken
	}

	iat := now.UTC().Truncate(time.Second)
	exp := iat.Add(c.ttl)

	claims := jwtClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   identity.DeriveUserID(email),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Decode verifies raw at now. Every failure unwraps to ErrInvalidToken.
func (c *Codec) Decode(raw string, now time.Time) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, invalid("empty", nil)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(c.skew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	var jc jwtClaims
	_, err := parser.ParseWithClaims(raw, &jc, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, invalid("expired", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, invalid("signature", err)
		default:
			return Claims{}, invalid("malformed", err)
		}
	}

	email := identity.NormalizeEmail(jc.Email)
	if email == "" || jc.Subject == "" {
		return Claims{}, invalid("missing claims", nil)
	}
	if jc.Subject != identity.DeriveUserID(email) {
		return Claims{}, invalid("subject mismatch", nil)
	}

	out := Claims{
		UserID:    jc.Subject,
		Email:     email,
		ExpiresAt: jc.ExpiresAt.Time.UTC(),
	}
	if jc.IssuedAt != nil {
		out.IssuedAt = jc.IssuedAt.Time.UTC()
	}
	return out, nil
}

// Verify is Decode with a boolean result; rejections are logged, never returned.
func (c *Codec) Verify(raw string, now time.Time) (Claims, bool) {
	claims, err := c.Decode(raw, now)
	if err != nil {
		var ve *VerifyError
		if errors.As(err, &ve) && (ve.Reason == "signature" || ve.Reason == "subject mismatch") {
			c.log.Warn("session.verify.reject", "reason", ve.Reason)
		} else {
			c.log.Debug("session.verify.reject", "err", err)
		}
		return Claims{}, false
	}
	return claims, true
}
