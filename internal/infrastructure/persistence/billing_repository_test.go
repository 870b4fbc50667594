package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdhub/commandhub/internal/domain/billing"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

func TestGormSubscriptionRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSubscriptionRepository(newTestDB(t))

	userID := uuid.New()
	end := time.Now().Add(30 * 24 * time.Hour).UTC()
	sub, err := billing.NewSubscription(&userID, billing.SubscriptionState{
		StripeSubscriptionID: "sub_1",
		StripeCustomerID:     "cus_1",
		StripePriceID:        "price_pro",
		Status:               billing.SubscriptionStatusActive,
		CurrentPeriodEnd:     &end,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, sub))

	// A later event without a known user must not detach the subscription.
	update, err := billing.NewSubscription(nil, billing.SubscriptionState{
		StripeSubscriptionID: "sub_1",
		StripeCustomerID:     "cus_1",
		StripePriceID:        "price_pro",
		Status:               billing.SubscriptionStatusPastDue,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, update))

	found, err := repo.FindByStripeID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, billing.SubscriptionStatusPastDue, found.Status)
	require.NotNil(t, found.UserID)
	assert.Equal(t, userID, *found.UserID)
	assert.Nil(t, found.CurrentPeriodEnd)

	latest, err := repo.FindLatestForUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "sub_1", latest.StripeSubscriptionID)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[billing.SubscriptionStatus]int64{billing.SubscriptionStatusPastDue: 1}, counts)

	_, err = repo.FindByStripeID(ctx, "sub_missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormSubscriptionRepository_AttachUserByCustomer(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSubscriptionRepository(newTestDB(t))

	sub, err := billing.NewSubscription(nil, billing.SubscriptionState{
		StripeSubscriptionID: "sub_orphan",
		StripeCustomerID:     "cus_9",
		Status:               billing.SubscriptionStatusTrialing,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, sub))

	userID := uuid.New()
	n, err := repo.AttachUserByCustomer(ctx, "cus_9", userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.AttachUserByCustomer(ctx, "cus_9", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "already attached rows are left alone")

	found, err := repo.FindLatestForUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, found.IsEntitled())
}

func TestGormPaymentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormPaymentRepository(newTestDB(t))

	p1, err := billing.NewPayment(nil, "in_1", "sub_1", "cus_1", 1999, "USD", "paid", time.Now())
	require.NoError(t, err)
	p2, err := billing.NewPayment(nil, "in_2", "sub_1", "cus_1", 1000, "usd", "paid", time.Now())
	require.NoError(t, err)

	inserted, err := repo.Record(ctx, p1)
	require.NoError(t, err)
	assert.True(t, inserted)

	replay, err := billing.NewPayment(nil, "in_1", "sub_1", "cus_1", 1999, "usd", "paid", time.Now())
	require.NoError(t, err)
	inserted, err = repo.Record(ctx, replay)
	require.NoError(t, err)
	assert.False(t, inserted)

	_, err = repo.Record(ctx, p2)
	require.NoError(t, err)

	totals, err := repo.Totals(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("29.99").Equal(totals["usd"]), totals["usd"].String())
}
