package mailer

import (
	"context"
	"log/slog"
)

// LogSender writes the link to the log instead of sending mail. Development only.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log}
}

func (s *LogSender) SendMagicLink(ctx context.Context, msg MagicLinkMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "mailer.dev.magic_link",
		"to", msg.To,
		"link", msg.Link,
		"expires_in", msg.ExpiresIn.String(),
	)
	return nil
}
