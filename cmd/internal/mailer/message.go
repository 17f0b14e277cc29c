package mailer

import (
	"bytes"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"
)

const magicLinkSubject = "Your sign-in link"

func (m MagicLinkMessage) validate() error {
	if strings.ContainsAny(m.To, "\r\n") || strings.ContainsAny(m.Link, "\r\n") {
		return ErrInvalidMessage
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return ErrInvalidMessage
	}
	if strings.TrimSpace(m.Link) == "" {
		return ErrInvalidMessage
	}
	return nil
}

// Body renders the text/plain body.
func (m MagicLinkMessage) Body() string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	b.WriteString("Use the link below to sign in to the investor site:\n\n")
	b.WriteString(m.Link)
	b.WriteString("\n\n")
	if mins := expiryMinutes(m.ExpiresIn); mins > 0 {
		fmt.Fprintf(&b, "The link can be used once and expires in %d minutes.\n", mins)
	} else {
		b.WriteString("The link can be used once.\n")
	}
	b.WriteString("If you did not request it, you can ignore this email.\n")
	return b.String()
}

// render builds the full RFC 5322 message with CRLF line endings.
func (m MagicLinkMessage) render(from string, now time.Time) []byte {
	var buf bytes.Buffer
	header := func(k, v string) {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(v)
		buf.WriteString("\r\n")
	}
	header("From", from)
	header("To", m.To)
	header("Subject", magicLinkSubject)
	header("Date", now.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	header("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(m.Body(), "\n", "\r\n"))
	return buf.Bytes()
}

func expiryMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Minutes()))
}
