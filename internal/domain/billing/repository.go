package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionRepository persists subscriptions keyed by Stripe subscription id
type SubscriptionRepository interface {
	// Upsert inserts or overwrites the row with the same StripeSubscriptionID
	Upsert(ctx context.Context, s *Subscription) error
	FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*Subscription, error)
	// FindLatestForUser returns the most recently updated subscription of a user
	FindLatestForUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	// AttachUserByCustomer sets user_id on rows of the customer that have none
	AttachUserByCustomer(ctx context.Context, customerID string, userID uuid.UUID) (int64, error)
	CountByStatus(ctx context.Context) (map[SubscriptionStatus]int64, error)
}

// PaymentRepository persists the payment ledger
type PaymentRepository interface {
	// Record inserts p unless a row with the same invoice id exists. It reports whether a row was inserted.
	Record(ctx context.Context, p *Payment) (bool, error)
	// Totals sums amounts per currency
	Totals(ctx context.Context) (map[string]decimal.Decimal, error)
}
