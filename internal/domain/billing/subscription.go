package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

// SubscriptionStatus mirrors Stripe's subscription status values
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

// Entitles reports whether the status grants access to paid features
func (s SubscriptionStatus) Entitles() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// Subscription is the local copy of a Stripe subscription
type Subscription struct {
	shared.BaseAggregateRoot
	UserID               *uuid.UUID
	StripeSubscriptionID string
	StripeCustomerID     string
	StripePriceID        string
	Status               SubscriptionStatus
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool
	CanceledAt           *time.Time
}

// SubscriptionState is the full set of fields a webhook event carries
type SubscriptionState struct {
	StripeSubscriptionID string
	StripeCustomerID     string
	StripePriceID        string
	Status               SubscriptionStatus
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool
	CanceledAt           *time.Time
}

// NewSubscription creates a subscription from webhook state
func NewSubscription(userID *uuid.UUID, state SubscriptionState) (*Subscription, error) {
	if state.StripeSubscriptionID == "" {
		return nil, shared.NewDomainError("INVALID_SUBSCRIPTION", "Stripe subscription id is required")
	}
	s := &Subscription{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		StripeSubscriptionID: state.StripeSubscriptionID,
	}
	s.Apply(userID, state)
	return s, nil
}

// Apply overwrites the mirrored fields with state. A known user is never
// replaced by an unknown one.
func (s *Subscription) Apply(userID *uuid.UUID, state SubscriptionState) {
	if userID != nil {
		s.UserID = userID
	}
	previous := s.Status
	s.StripeCustomerID = state.StripeCustomerID
	if state.StripePriceID != "" {
		s.StripePriceID = state.StripePriceID
	}
	s.Status = state.Status
	s.CurrentPeriodStart = state.CurrentPeriodStart
	s.CurrentPeriodEnd = state.CurrentPeriodEnd
	s.CancelAtPeriodEnd = state.CancelAtPeriodEnd
	s.CanceledAt = state.CanceledAt
	s.Touch()

	if previous != s.Status {
		s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, previous))
	}
}

// IsEntitled reports whether the subscription currently grants access
func (s *Subscription) IsEntitled() bool {
	return s.Status.Entitles()
}
