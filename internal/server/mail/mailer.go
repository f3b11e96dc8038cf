// Package mail implements the outbound-mail collaborator: a small Mailer
// interface with an SMTP implementation for real delivery and a logging
// implementation for development, plus the HTML/text bodies for the
// verification and password-reset messages.
package mail

import "context"

// Message is a single outbound email with both plain-text and HTML bodies.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer dispatches a message and returns a provider message id.
// Implementations must respect ctx cancellation; callers bound each dispatch
// with a timeout so a slow mail host cannot stall request handling.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}
