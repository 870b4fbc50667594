// Package notification queues and sends transactional email. Delivery is
// best effort: callers are never failed by an email problem.
package notification

import (
	"context"

	"github.com/tdhub/commandhub/internal/domain/notification"
	"go.uber.org/zap"
)

// Config controls how Send delivers
type Config struct {
	UseOutbox  bool
	MaxRetries int
}

// Service sends email through the outbox or directly through the mailer
type Service struct {
	mailer notification.Mailer
	outbox notification.OutboxRepository
	config Config
	logger *zap.Logger
}

// NewService creates a notification service. outbox may be nil when UseOutbox is false.
func NewService(mailer notification.Mailer, outbox notification.OutboxRepository, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if outbox == nil {
		cfg.UseOutbox = false
	}
	return &Service{
		mailer: mailer,
		outbox: outbox,
		config: cfg,
		logger: logger.Named("notification"),
	}
}

// Send queues or sends email. Failures are logged and swallowed.
func (s *Service) Send(ctx context.Context, email notification.Email) {
	log := s.logger.With(zap.String("kind", string(email.Kind)), zap.String("to", email.To))

	if err := email.Validate(); err != nil {
		log.Warn("Dropping invalid email", zap.Error(err))
		return
	}

	if s.config.UseOutbox {
		entry := notification.NewOutboxEntry(email, s.config.MaxRetries)
		if err := s.outbox.Save(ctx, entry); err != nil {
			log.Error("Failed to queue email", zap.Error(err))
			return
		}
		log.Debug("Email queued", zap.String("outbox_id", entry.ID.String()))
		return
	}

	if s.mailer == nil {
		log.Warn("No mailer configured, email not sent")
		return
	}
	if err := s.mailer.Send(ctx, email); err != nil {
		log.Error("Failed to send email", zap.Error(err))
		return
	}
	log.Info("Email sent")
}

// OutboxStats returns queued email counts by status. It is empty when the outbox is disabled.
func (s *Service) OutboxStats(ctx context.Context) (map[notification.OutboxStatus]int64, error) {
	if !s.config.UseOutbox {
		return map[notification.OutboxStatus]int64{}, nil
	}
	return s.outbox.CountByStatus(ctx)
}
