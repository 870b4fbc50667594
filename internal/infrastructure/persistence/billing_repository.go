package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tdhub/commandhub/internal/domain/billing"
	"github.com/tdhub/commandhub/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSubscriptionRepository implements billing.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// Upsert inserts the subscription or overwrites the row with the same Stripe id.
// A known user_id is never cleared by an event that carries none.
func (r *GormSubscriptionRepository) Upsert(ctx context.Context, s *billing.Subscription) error {
	updates := clause.AssignmentColumns([]string{
		"stripe_customer_id",
		"stripe_price_id",
		"status",
		"current_period_start",
		"current_period_end",
		"cancel_at_period_end",
		"canceled_at",
		"updated_at",
	})
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "user_id"},
		Value:  gorm.Expr("COALESCE(excluded.user_id, subscriptions.user_id)"),
	})

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_subscription_id"}},
			DoUpdates: updates,
		}).
		Create(models.SubscriptionModelFromDomain(s)).Error
}

// FindByStripeID finds a subscription by its Stripe id
func (r *GormSubscriptionRepository) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindLatestForUser returns the most recently updated subscription of a user
func (r *GormSubscriptionRepository) FindLatestForUser(ctx context.Context, userID uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// AttachUserByCustomer links orphan subscriptions of a customer to a user
func (r *GormSubscriptionRepository) AttachUserByCustomer(ctx context.Context, customerID string, userID uuid.UUID) (int64, error) {
	if customerID == "" {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.SubscriptionModel{}).
		Where("stripe_customer_id = ? AND user_id IS NULL", customerID).
		Update("user_id", userID)
	return result.RowsAffected, result.Error
}

// CountByStatus returns the number of subscriptions per status
func (r *GormSubscriptionRepository) CountByStatus(ctx context.Context) (map[billing.SubscriptionStatus]int64, error) {
	type statusCount struct {
		Status billing.SubscriptionStatus
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.SubscriptionModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	counts := make(map[billing.SubscriptionStatus]int64, len(results))
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Record inserts a payment; a replayed invoice is ignored
func (r *GormPaymentRepository) Record(ctx context.Context, p *billing.Payment) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_invoice_id"}},
			DoNothing: true,
		}).
		Create(models.PaymentModelFromDomain(p))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Totals sums recorded amounts per currency
func (r *GormPaymentRepository) Totals(ctx context.Context) (map[string]decimal.Decimal, error) {
	type currencyTotal struct {
		Currency string
		Total    decimal.Decimal
	}
	var results []currencyTotal
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("currency, SUM(amount) as total").
		Group("currency").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	totals := make(map[string]decimal.Decimal, len(results))
	for _, ct := range results {
		totals[ct.Currency] = ct.Total
	}
	return totals, nil
}

var (
	_ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
	_ billing.PaymentRepository      = (*GormPaymentRepository)(nil)
)
