// Package directory resolves display profiles for signed-in investors from a YAML file.
//
// The file is optional. Unknown investors get a profile derived from their email.
package directory

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/identity"
)

// DefaultRole is used when neither the file nor the entry names a role.
const DefaultRole = "Investor"

// Profile is what the UI shows for the signed-in investor.
type Profile struct {
	UserID       string `json:"userId" yaml:"-"`
	Email        string `json:"email" yaml:"email"`
	Name         string `json:"name" yaml:"name"`
	Organization string `json:"organization,omitempty" yaml:"organization"`
	Role         string `json:"role" yaml:"role"`
}

type file struct {
	DefaultRole string    `yaml:"default_role"`
	Investors   []Profile `yaml:"investors"`
}

// Directory is an immutable email -> profile index.
type Directory struct {
	defaultRole string
	byEmail     map[string]Profile
}

// Empty returns a directory that resolves every email to its fallback profile.
func Empty() *Directory {
	return &Directory{defaultRole: DefaultRole, byEmail: map[string]Profile{}}
}

// Load reads path; an empty path yields Empty().
func Load(path string) (*Directory, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Empty(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML directory. Duplicate emails are rejected.
func Parse(data []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("directory: decode: %w", err)
	}

	d := Empty()
	if r := strings.TrimSpace(f.DefaultRole); r != "" {
		d.defaultRole = r
	}
	for i, p := range f.Investors {
		email := identity.NormalizeEmail(p.Email)
		if !identity.ValidEmail(email) {
			return nil, fmt.Errorf("directory: investors[%d]: invalid email %q", i, p.Email)
		}
		if _, dup := d.byEmail[email]; dup {
			return nil, fmt.Errorf("directory: investors[%d]: duplicate email %q", i, email)
		}
		p.Email = email
		p.Name = strings.TrimSpace(p.Name)
		p.Organization = strings.TrimSpace(p.Organization)
		p.Role = strings.TrimSpace(p.Role)
		d.byEmail[email] = p
	}
	return d, nil
}

// Len returns the number of configured investors.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.byEmail)
}

// ResolveUserProfile returns the configured profile for email, filling gaps with defaults.
// It never fails: unknown emails get FallbackName and the default role.
func (d *Directory) ResolveUserProfile(email, userID string) Profile {
	if d == nil {
		d = Empty()
	}
	email = identity.NormalizeEmail(email)
	if userID == "" {
		userID = identity.DeriveUserID(email)
	}

	p, ok := d.byEmail[email]
	if !ok {
		p = Profile{Email: email}
	}
	p.UserID = userID
	if p.Name == "" {
		p.Name = FallbackName(email)
	}
	if p.Role == "" {
		p.Role = d.defaultRole
	}
	return p
}

// FallbackName turns the local part into a display name: "jane.doe+lp" -> "Jane Doe".
func FallbackName(email string) string {
	local, _, _ := strings.Cut(identity.NormalizeEmail(email), "@")
	local, _, _ = strings.Cut(local, "+")

	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || unicode.IsDigit(r)
	})
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	if len(words) == 0 {
		return DefaultRole
	}
	return strings.Join(words, " ")
}
