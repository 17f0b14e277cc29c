package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// SMTPConfig configures SMTPSender.
type SMTPConfig struct {
	// Addr is host:port of the relay.
	Addr     string
	Username string
	Password string
	From     string

	// Timeout bounds one delivery attempt (dial through QUIT).
	Timeout time.Duration

	MaxRetries uint64
	BaseDelay  time.Duration
}

// SMTPSender delivers mail through an SMTP relay, upgrading with STARTTLS when offered.
type SMTPSender struct {
	cfg  SMTPConfig
	host string
	log  *slog.Logger

	// now is swapped in tests.
	now func() time.Time
}

// NewSMTPSender validates cfg. A missing Addr or From is ErrNotConfigured.
func NewSMTPSender(cfg SMTPConfig, log *slog.Logger) (*SMTPSender, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.From = strings.TrimSpace(cfg.From)
	if cfg.Addr == "" || cfg.From == "" {
		return nil, ErrNotConfigured
	}
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil || host == "" {
		return nil, fmt.Errorf("%w: invalid SMTP address %q", ErrNotConfigured, cfg.Addr)
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("%w: invalid From %q", ErrNotConfigured, cfg.From)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &SMTPSender{cfg: cfg, host: host, log: log, now: time.Now}, nil
}

func (s *SMTPSender) SendMagicLink(ctx context.Context, msg MagicLinkMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}

	body := msg.render(s.cfg.From, s.now())
	attempts := 0

	backoff := retry.WithMaxRetries(s.cfg.MaxRetries, retry.NewExponential(s.cfg.BaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := s.deliver(ctx, msg.To, body)
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && transient(err) {
			s.log.Warn("mailer.smtp.retry", "attempt", attempts, "err", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return &SendError{Attempts: attempts, Err: err}
	}
	return nil
}

func (s *SMTPSender) deliver(ctx context.Context, to string, body []byte) error {
	actx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(actx, "tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	if deadline, ok := actx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.host)); err != nil {
			return err
		}
	}

	from, err := mail.ParseAddress(s.cfg.From)
	if err != nil {
		return err
	}
	if err := c.Mail(from.Address); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	// The relay accepted the message on DATA close; a failed QUIT must not trigger a resend.
	if err := c.Quit(); err != nil {
		s.log.Debug("mailer.smtp.quit.fail", "err", err)
	}
	return nil
}

// transient: network failures and 4xx replies; 5xx replies are permanent.
func transient(err error) bool {
	var te *textproto.Error
	if errors.As(err, &te) {
		return te.Code >= 400 && te.Code < 500
	}
	var ne net.Error
	return errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded)
}
