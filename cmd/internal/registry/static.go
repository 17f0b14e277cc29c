package registry

import (
	"context"
	"strings"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/identity"
)

// StaticLookup is an in-process allowlist (JBV_AUTHORIZED_EMAILS).
type StaticLookup struct {
	emails map[string]struct{}
}

// NewStaticLookup builds an allowlist; entries are canonicalized and blanks dropped.
func NewStaticLookup(emails []string) *StaticLookup {
	s := &StaticLookup{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if e = identity.NormalizeEmail(e); e != "" {
			s.emails[e] = struct{}{}
		}
	}
	return s
}

// ParseEmailList splits a comma/whitespace separated list.
func ParseEmailList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
	})
}

// Len returns the number of allowlisted emails.
func (s *StaticLookup) Len() int { return len(s.emails) }

func (s *StaticLookup) Lookup(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := s.emails[identity.NormalizeEmail(email)]
	return ok, nil
}
