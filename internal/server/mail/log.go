package mail

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// LogMailer logs outbound messages instead of delivering them. Used in
// development when no SMTP host is configured.
type LogMailer struct {
	logger logging.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(l logging.Logger) *LogMailer {
	return &LogMailer{logger: l.With("module", "mail")}
}

// Send logs the message headers (never the body, which carries secrets in
// links) and returns a generated message id.
func (m *LogMailer) Send(ctx context.Context, msg Message) (string, error) {
	messageID := uuid.NewString()
	m.logger.Info(ctx, "mail dispatched (log only)", "to", msg.To, "subject", msg.Subject, "message_id", messageID)
	return messageID, nil
}
