package notification

import (
	"context"
	"fmt"

	"github.com/tdhub/commandhub/internal/domain/affiliate"
	"github.com/tdhub/commandhub/internal/domain/shared"
	"go.uber.org/zap"
)

// AffiliateEmailHandler sends invitation and welcome emails for affiliate events
type AffiliateEmailHandler struct {
	service   *Service
	templates *Templates
	logger    *zap.Logger
}

var _ shared.EventHandler = (*AffiliateEmailHandler)(nil)

// NewAffiliateEmailHandler creates the handler
func NewAffiliateEmailHandler(service *Service, templates *Templates, logger *zap.Logger) *AffiliateEmailHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AffiliateEmailHandler{service: service, templates: templates, logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *AffiliateEmailHandler) EventTypes() []string {
	return []string{affiliate.EventTypeInvited, affiliate.EventTypeAccepted}
}

// Handle implements shared.EventHandler
func (h *AffiliateEmailHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	h.logger.Debug("Affiliate email triggered",
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()))

	switch e := evt.(type) {
	case *affiliate.InvitedEvent:
		msg, err := h.templates.AffiliateInvite(e.Name, e.Email, e.InviteCode, e.ExpiresAt)
		if err != nil {
			return err
		}
		h.service.Send(ctx, msg)
	case *affiliate.AcceptedEvent:
		msg, err := h.templates.AffiliateWelcome(e.Name, e.Email, e.ReferralCode)
		if err != nil {
			return err
		}
		h.service.Send(ctx, msg)
	default:
		return fmt.Errorf("unexpected event %T", evt)
	}
	return nil
}
