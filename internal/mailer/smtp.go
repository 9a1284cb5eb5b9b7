package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTP sends mail through an SMTP relay using gomail.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTP creates an SMTP mailer. from is the envelope and header sender.
func NewSMTP(host string, port int, username, password, from string) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send dials the relay and delivers the message. The context is checked
// before dialing; gomail itself does not support mid-send cancellation.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetAddressHeader("To", msg.To, msg.ToName)
	m.SetHeader("Subject", msg.Subject)
	if msg.MessageID != "" {
		m.SetHeader("X-Entity-Ref-ID", msg.MessageID)
	}
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}
