package mailer

import (
	"context"
	"log/slog"
)

// LogMailer logs messages instead of sending them. Used in development when
// no SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message and reports success.
func (l *LogMailer) Send(_ context.Context, msg Message) error {
	l.logger.Info("Email (not sent, log mailer active)",
		"to", msg.To,
		"subject", msg.Subject,
		"message_id", msg.MessageID,
		"bytes", len(msg.HTML),
	)
	return nil
}
