package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tdhub/commandhub/internal/domain/billing"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

// SubscriptionModel is the persistence model for billing.Subscription
type SubscriptionModel struct {
	BaseModel
	UserID               *uuid.UUID                 `gorm:"type:uuid;index"`
	StripeSubscriptionID string                     `gorm:"type:varchar(255);not null;uniqueIndex"`
	StripeCustomerID     string                     `gorm:"type:varchar(255);not null;default:'';index"`
	StripePriceID        string                     `gorm:"type:varchar(255);not null;default:''"`
	Status               billing.SubscriptionStatus `gorm:"type:varchar(32);not null;index"`
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool `gorm:"not null;default:false"`
	CanceledAt           *time.Time
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// SubscriptionModelFromDomain converts a domain subscription
func SubscriptionModelFromDomain(s *billing.Subscription) *SubscriptionModel {
	m := &SubscriptionModel{
		UserID:               s.UserID,
		StripeSubscriptionID: s.StripeSubscriptionID,
		StripeCustomerID:     s.StripeCustomerID,
		StripePriceID:        s.StripePriceID,
		Status:               s.Status,
		CurrentPeriodStart:   s.CurrentPeriodStart,
		CurrentPeriodEnd:     s.CurrentPeriodEnd,
		CancelAtPeriodEnd:    s.CancelAtPeriodEnd,
		CanceledAt:           s.CanceledAt,
	}
	m.fromEntity(s.BaseEntity)
	return m
}

// ToDomain converts to a domain subscription
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	return &billing.Subscription{
		BaseAggregateRoot:    shared.BaseAggregateRoot{BaseEntity: m.toEntity()},
		UserID:               m.UserID,
		StripeSubscriptionID: m.StripeSubscriptionID,
		StripeCustomerID:     m.StripeCustomerID,
		StripePriceID:        m.StripePriceID,
		Status:               m.Status,
		CurrentPeriodStart:   m.CurrentPeriodStart,
		CurrentPeriodEnd:     m.CurrentPeriodEnd,
		CancelAtPeriodEnd:    m.CancelAtPeriodEnd,
		CanceledAt:           m.CanceledAt,
	}
}

// PaymentModel is the persistence model for billing.Payment
type PaymentModel struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID               *uuid.UUID      `gorm:"type:uuid;index"`
	StripeInvoiceID      string          `gorm:"type:varchar(255);not null;uniqueIndex"`
	StripeSubscriptionID string          `gorm:"type:varchar(255);not null;default:'';index"`
	StripeCustomerID     string          `gorm:"type:varchar(255);not null;default:''"`
	Amount               decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Currency             string          `gorm:"type:varchar(3);not null"`
	Status               string          `gorm:"type:varchar(32);not null"`
	PaidAt               time.Time       `gorm:"not null"`
	CreatedAt            time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// PaymentModelFromDomain converts a domain payment
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	return &PaymentModel{
		ID:                   p.ID,
		UserID:               p.UserID,
		StripeInvoiceID:      p.StripeInvoiceID,
		StripeSubscriptionID: p.StripeSubscriptionID,
		StripeCustomerID:     p.StripeCustomerID,
		Amount:               p.Amount,
		Currency:             p.Currency,
		Status:               p.Status,
		PaidAt:               p.PaidAt,
		CreatedAt:            p.CreatedAt,
	}
}
