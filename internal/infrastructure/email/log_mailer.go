package email

import (
	"context"

	"github.com/tdhub/commandhub/internal/domain/notification"
	"go.uber.org/zap"
)

// LogMailer only logs messages. Used when no provider key is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a LogMailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("mailer")}
}

// Send logs the envelope, never the body
func (m *LogMailer) Send(_ context.Context, msg notification.Email) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.logger.Info("Email not sent, no provider configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("kind", string(msg.Kind)),
	)
	return nil
}

var _ notification.Mailer = (*LogMailer)(nil)
