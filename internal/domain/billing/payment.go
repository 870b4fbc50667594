package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

// Payment is an append-only ledger row, one per paid invoice
type Payment struct {
	ID                   uuid.UUID
	UserID               *uuid.UUID
	StripeInvoiceID      string
	StripeSubscriptionID string
	StripeCustomerID     string
	Amount               decimal.Decimal
	Currency             string
	Status               string
	PaidAt               time.Time
	CreatedAt            time.Time
}

// zeroDecimalCurrencies are charged in whole units by Stripe
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// AmountFromMinorUnits converts a Stripe integer amount into major units
func AmountFromMinorUnits(amount int64, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}

// NewPayment creates a ledger row for a paid invoice
func NewPayment(userID *uuid.UUID, invoiceID, subscriptionID, customerID string, amountMinor int64, currency, status string, paidAt time.Time) (*Payment, error) {
	if invoiceID == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Stripe invoice id is required")
	}
	if amountMinor < 0 {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment amount cannot be negative")
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	return &Payment{
		ID:                   uuid.New(),
		UserID:               userID,
		StripeInvoiceID:      invoiceID,
		StripeSubscriptionID: subscriptionID,
		StripeCustomerID:     customerID,
		Amount:               AmountFromMinorUnits(amountMinor, currency),
		Currency:             strings.ToLower(currency),
		Status:               status,
		PaidAt:               paidAt.UTC(),
		CreatedAt:            time.Now().UTC(),
	}, nil
}
