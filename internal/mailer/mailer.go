// Package mailer delivers rendered summary emails.
package mailer

import "context"

// Message is one outbound email.
type Message struct {
	To        string
	ToName    string
	Subject   string
	HTML      string
	MessageID string
}

// Mailer sends a message. A nil error means the transport confirmed delivery
// to the outbound server; only then may a send be recorded in the ledger.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
