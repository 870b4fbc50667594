package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	billingapp "github.com/tdhub/commandhub/internal/application/billing"
	identityapp "github.com/tdhub/commandhub/internal/application/identity"
	"github.com/tdhub/commandhub/internal/domain/affiliate"
	"github.com/tdhub/commandhub/internal/domain/billing"
	"go.uber.org/zap"
)

type stubUsers struct{ info *identityapp.UserInfo }

func (s stubUsers) CurrentUser(context.Context, uuid.UUID) (*identityapp.UserInfo, error) {
	return s.info, nil
}

type stubSubscriptions struct{ view *billingapp.SubscriptionView }

func (s stubSubscriptions) GetSubscription(context.Context, uuid.UUID) (*billingapp.SubscriptionView, error) {
	return s.view, nil
}

type stubInvites map[affiliate.Status]int64

func (s stubInvites) CountByStatus(context.Context) (map[affiliate.Status]int64, error) {
	return s, nil
}

type stubSubCounts map[billing.SubscriptionStatus]int64

func (s stubSubCounts) CountByStatus(context.Context) (map[billing.SubscriptionStatus]int64, error) {
	return s, nil
}

type stubPayments map[string]decimal.Decimal

func (s stubPayments) Totals(context.Context) (map[string]decimal.Decimal, error) { return s, nil }

type stubSubscribers int64

func (s stubSubscribers) Count(context.Context) (int64, error) { return int64(s), nil }

func sources(role string) Sources {
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	sub := &billing.Subscription{Status: billing.SubscriptionStatusTrialing, CurrentPeriodEnd: &end}
	return Sources{
		Users:         stubUsers{info: &identityapp.UserInfo{ID: uuid.New(), Email: "a@example.com", Role: role}},
		Subscriptions: stubSubscriptions{view: &billingapp.SubscriptionView{Subscription: sub, Entitled: true}},
		Invites:       stubInvites{affiliate.StatusPending: 2, affiliate.StatusAccepted: 5},
		SubCounts: stubSubCounts{
			billing.SubscriptionStatusActive:   3,
			billing.SubscriptionStatusTrialing: 1,
			billing.SubscriptionStatusCanceled: 4,
		},
		Payments:    stubPayments{"usd": decimal.RequireFromString("123.45")},
		Subscribers: stubSubscribers(9),
	}
}

func TestService_Summary_Admin(t *testing.T) {
	svc := NewService(sources("admin"), zap.NewNop())

	summary, err := svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.True(t, summary.Subscription.Entitled)
	assert.Equal(t, "trialing", summary.Subscription.Status)
	require.NotNil(t, summary.Admin)
	assert.Equal(t, int64(2), summary.Admin.Invites["pending"])
	assert.Equal(t, int64(4), summary.Admin.ActiveSubscriptions)
	assert.Equal(t, "123.45", summary.Admin.PaymentTotals["usd"].String())
	assert.Equal(t, int64(9), summary.Admin.Subscribers)
}

func TestService_Summary_NonAdmin(t *testing.T) {
	svc := NewService(sources("customer"), zap.NewNop())

	summary, err := svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, summary.Admin)
	assert.Equal(t, "a@example.com", summary.User.Email)
}

func TestService_Summary_NoSubscription(t *testing.T) {
	src := sources("affiliate")
	src.Subscriptions = stubSubscriptions{view: &billingapp.SubscriptionView{}}
	svc := NewService(src, zap.NewNop())

	summary, err := svc.Summary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, summary.Subscription.Entitled)
	assert.Empty(t, summary.Subscription.Status)
}
