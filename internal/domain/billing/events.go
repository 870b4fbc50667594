package billing

import (
	"github.com/tdhub/commandhub/internal/domain/shared"
)

const (
	AggregateTypeSubscription = "Subscription"

	EventTypeSubscriptionStatusChanged = "billing.subscription_status_changed"
	EventTypePaymentRecorded           = "billing.payment_recorded"
)

// SubscriptionStatusChangedEvent is raised when a webhook moves a subscription to a new status
type SubscriptionStatusChangedEvent struct {
	shared.BaseDomainEvent
	StripeSubscriptionID string             `json:"stripe_subscription_id"`
	From                 SubscriptionStatus `json:"from"`
	To                   SubscriptionStatus `json:"to"`
}

// NewSubscriptionStatusChangedEvent creates the event
func NewSubscriptionStatusChangedEvent(s *Subscription, from SubscriptionStatus) *SubscriptionStatusChangedEvent {
	return &SubscriptionStatusChangedEvent{
		BaseDomainEvent:      shared.NewBaseDomainEvent(EventTypeSubscriptionStatusChanged, AggregateTypeSubscription, s.ID),
		StripeSubscriptionID: s.StripeSubscriptionID,
		From:                 from,
		To:                   s.Status,
	}
}

// PaymentRecordedEvent is raised when a new ledger row is inserted
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	StripeInvoiceID string `json:"stripe_invoice_id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
}

// NewPaymentRecordedEvent creates the event
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, "Payment", p.ID),
		StripeInvoiceID: p.StripeInvoiceID,
		Amount:          p.Amount.StringFixed(2),
		Currency:        p.Currency,
	}
}
