package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/tdhub/commandhub/internal/domain/billing"
	"github.com/tdhub/commandhub/internal/domain/identity"
	"github.com/tdhub/commandhub/internal/domain/shared"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

type webhookFixture struct {
	users    *MockUserRepository
	subs     *MockSubscriptionRepository
	payments *MockPaymentRepository
	idem     *MockIdempotencyStore
	events   *MockEventPublisher
	service  *WebhookService
}

func newWebhookFixture(withIdempotency bool) *webhookFixture {
	f := &webhookFixture{
		users:    new(MockUserRepository),
		subs:     new(MockSubscriptionRepository),
		payments: new(MockPaymentRepository),
		idem:     new(MockIdempotencyStore),
		events:   new(MockEventPublisher),
	}
	cfg := WebhookServiceConfig{
		WebhookSecret: testWebhookSecret,
		Users:         f.users,
		Subscriptions: f.subs,
		Payments:      f.payments,
		Events:        f.events,
		Logger:        zap.NewNop(),
	}
	if withIdempotency {
		cfg.Idempotency = f.idem
	}
	f.service = NewWebhookService(cfg)
	return f
}

func (f *webhookFixture) assertExpectations(t *testing.T) {
	f.users.AssertExpectations(t)
	f.subs.AssertExpectations(t)
	f.payments.AssertExpectations(t)
	f.idem.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

// signedEvent builds a Stripe event envelope around object and signs it
func signedEvent(t *testing.T, id, eventType string, object map[string]any) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"data":        map[string]any{"object": json.RawMessage(raw)},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testWebhookSecret,
	})
	return signed.Payload, signed.Header
}

func subscriptionObject(status string) map[string]any {
	now := time.Now().Unix()
	return map[string]any{
		"id":                   "sub_1",
		"object":               "subscription",
		"customer":             "cus_1",
		"status":               status,
		"current_period_start": now,
		"current_period_end":   now + 30*24*3600,
		"cancel_at_period_end": false,
		"items": map[string]any{
			"object": "list",
			"data": []any{
				map[string]any{"id": "si_1", "object": "subscription_item", "price": map[string]any{"id": "price_pro", "object": "price"}},
			},
		},
	}
}

func newWebhookTestUser(t *testing.T) *identity.User {
	u, err := identity.NewUserWithHash("buyer@example.com", "", "Buyer", identity.RoleCustomer)
	require.NoError(t, err)
	u.StripeCustomerID = "cus_1"
	return u
}

func TestHandleWebhook_InvalidSignatureTouchesNothing(t *testing.T) {
	f := newWebhookFixture(true)
	payload, _ := signedEvent(t, "evt_1", EventSubscriptionUpdated, subscriptionObject("active"))

	_, err := f.service.HandleWebhook(context.Background(), payload, "t=1,v1=deadbeef")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = f.service.HandleWebhook(context.Background(), payload, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	f.users.AssertNotCalled(t, "FindByStripeCustomerID", mock.Anything, mock.Anything)
	f.subs.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.idem.AssertNotCalled(t, "IsProcessed", mock.Anything, mock.Anything)
}

func TestHandleWebhook_TamperedPayload(t *testing.T) {
	f := newWebhookFixture(false)
	payload, header := signedEvent(t, "evt_1", EventSubscriptionUpdated, subscriptionObject("active"))
	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '

	_, err := f.service.HandleWebhook(context.Background(), tampered, header)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	f.assertExpectations(t)
}

func TestHandleWebhook_NotConfigured(t *testing.T) {
	svc := NewWebhookService(WebhookServiceConfig{})
	_, err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.ErrorIs(t, err, ErrWebhookNotConfigured)
}

func TestHandleWebhook_SubscriptionCreated(t *testing.T) {
	f := newWebhookFixture(false)
	user := newWebhookTestUser(t)
	payload, header := signedEvent(t, "evt_1", EventSubscriptionCreated, subscriptionObject("active"))

	f.users.On("FindByStripeCustomerID", mock.Anything, "cus_1").Return(user, nil)
	f.subs.On("FindByStripeID", mock.Anything, "sub_1").Return(nil, shared.ErrNotFound)
	f.subs.On("Upsert", mock.Anything, mock.MatchedBy(func(s *billing.Subscription) bool {
		return s.StripeSubscriptionID == "sub_1" &&
			s.Status == billing.SubscriptionStatusActive &&
			s.StripePriceID == "price_pro" &&
			s.StripeCustomerID == "cus_1" &&
			s.UserID != nil && *s.UserID == user.ID &&
			s.CurrentPeriodEnd != nil
	})).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "evt_1", result.EventID)
	f.assertExpectations(t)
}

func TestHandleWebhook_SubscriptionDeleted(t *testing.T) {
	f := newWebhookFixture(false)
	userID := uuid.New()
	existing, err := billing.NewSubscription(&userID, billing.SubscriptionState{
		StripeSubscriptionID: "sub_1",
		StripeCustomerID:     "cus_1",
		Status:               billing.SubscriptionStatusActive,
	})
	require.NoError(t, err)
	existing.ClearDomainEvents()

	payload, header := signedEvent(t, "evt_2", EventSubscriptionDeleted, subscriptionObject("canceled"))

	f.users.On("FindByStripeCustomerID", mock.Anything, "cus_1").Return(nil, shared.ErrNotFound)
	f.subs.On("FindByStripeID", mock.Anything, "sub_1").Return(existing, nil)
	f.subs.On("Upsert", mock.Anything, mock.MatchedBy(func(s *billing.Subscription) bool {
		return s.Status == billing.SubscriptionStatusCanceled &&
			s.CanceledAt != nil &&
			s.UserID != nil && *s.UserID == userID
	})).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	_, err = f.service.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestHandleWebhook_SubscriptionForUnknownCustomer(t *testing.T) {
	f := newWebhookFixture(false)
	payload, header := signedEvent(t, "evt_3", EventSubscriptionUpdated, subscriptionObject("trialing"))

	f.users.On("FindByStripeCustomerID", mock.Anything, "cus_1").Return(nil, shared.ErrNotFound)
	f.subs.On("FindByStripeID", mock.Anything, "sub_1").Return(nil, shared.ErrNotFound)
	f.subs.On("Upsert", mock.Anything, mock.MatchedBy(func(s *billing.Subscription) bool {
		return s.UserID == nil && s.Status == billing.SubscriptionStatusTrialing
	})).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	f.assertExpectations(t)
}

func invoiceObject() map[string]any {
	return map[string]any{
		"id":           "in_1",
		"object":       "invoice",
		"customer":     "cus_1",
		"subscription": "sub_1",
		"amount_paid":  1999,
		"currency":     "usd",
		"status":       "paid",
		"status_transitions": map[string]any{
			"paid_at": time.Now().Unix(),
		},
	}
}

func TestHandleWebhook_InvoicePaid(t *testing.T) {
	f := newWebhookFixture(false)
	user := newWebhookTestUser(t)
	payload, header := signedEvent(t, "evt_4", EventInvoicePaid, invoiceObject())

	f.users.On("FindByStripeCustomerID", mock.Anything, "cus_1").Return(user, nil)
	f.payments.On("Record", mock.Anything, mock.MatchedBy(func(p *billing.Payment) bool {
		return p.StripeInvoiceID == "in_1" &&
			p.Amount.StringFixed(2) == "19.99" &&
			p.Currency == "usd" &&
			p.StripeSubscriptionID == "sub_1" &&
			p.UserID != nil && *p.UserID == user.ID
	})).Return(true, nil)
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestHandleWebhook_DuplicateInvoiceIsNotRepublished(t *testing.T) {
	f := newWebhookFixture(false)
	payload, header := signedEvent(t, "evt_5", EventInvoicePaymentSucceeded, invoiceObject())

	f.users.On("FindByStripeCustomerID", mock.Anything, "cus_1").Return(nil, shared.ErrNotFound)
	f.payments.On("Record", mock.Anything, mock.Anything).Return(false, nil)

	_, err := f.service.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestHandleWebhook_InvoicePaymentFailedOnlyLogs(t *testing.T) {
	f := newWebhookFixture(false)
	payload, header := signedEvent(t, "evt_6", EventInvoicePaymentFailed, invoiceObject())

	result, err := f.service.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	assert.True(t, result.Processed)
	f.assertExpectations(t)
}

func TestHandleWebhook_UnhandledType(t *testing.T) {
	f := newWebhookFixture(false)
	payload, header := signedEvent(t, "evt_7", "customer.created", map[string]any{"id": "cus_1", "object": "customer"})

	result, err := f.service.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	assert.Equal(t, "Event type not handled", result.Message)
	f.assertExpectations(t)
}

func TestHandleWebhook_Idempotency(t *testing.T) {
	t.Run("redelivery is skipped", func(t *testing.T) {
		f := newWebhookFixture(true)
		payload, header := signedEvent(t, "evt_dup", EventInvoicePaid, invoiceObject())
		f.idem.On("IsProcessed", mock.Anything, "evt_dup").Return(true, nil)

		result, err := f.service.HandleWebhook(context.Background(), payload, header)
		require.NoError(t, err)
		assert.True(t, result.Duplicate)
		f.payments.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("marked after success", func(t *testing.T) {
		f := newWebhookFixture(true)
		payload, header := signedEvent(t, "evt_new", EventInvoicePaid, invoiceObject())
		f.idem.On("IsProcessed", mock.Anything, "evt_new").Return(false, nil)
		f.users.On("FindByStripeCustomerID", mock.Anything, "cus_1").Return(nil, shared.ErrNotFound)
		f.payments.On("Record", mock.Anything, mock.Anything).Return(true, nil)
		f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)
		f.idem.On("MarkProcessed", mock.Anything, "evt_new", DefaultWebhookIdempotencyWindow).Return(true, nil)

		_, err := f.service.HandleWebhook(context.Background(), payload, header)
		require.NoError(t, err)
		f.assertExpectations(t)
	})

	t.Run("not marked after failure", func(t *testing.T) {
		f := newWebhookFixture(true)
		payload, header := signedEvent(t, "evt_fail", EventInvoicePaid, invoiceObject())
		f.idem.On("IsProcessed", mock.Anything, "evt_fail").Return(false, nil)
		f.users.On("FindByStripeCustomerID", mock.Anything, "cus_1").Return(nil, shared.ErrNotFound)
		f.payments.On("Record", mock.Anything, mock.Anything).Return(false, errors.New("db down"))

		result, err := f.service.HandleWebhook(context.Background(), payload, header)
		require.Error(t, err)
		assert.False(t, result.Processed)
		f.idem.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})
}

func checkoutObject() map[string]any {
	return map[string]any{
		"id":               "cs_1",
		"object":           "checkout.session",
		"customer":         "cus_1",
		"customer_details": map[string]any{"email": "Buyer@Example.com"},
		"metadata":         map[string]any{"referral_code": "alice1234"},
		"mode":             "subscription",
	}
}

func TestHandleWebhook_CheckoutCreatesCustomer(t *testing.T) {
	f := newWebhookFixture(false)
	payload, header := signedEvent(t, "evt_8", EventCheckoutSessionCompleted, checkoutObject())

	var created *identity.User
	f.users.On("FindByStripeCustomerID", mock.Anything, "cus_1").Return(nil, shared.ErrNotFound)
	f.users.On("FindByEmail", mock.Anything, "Buyer@Example.com").Return(nil, shared.ErrNotFound)
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *identity.User) bool {
		created = u
		return u.Email == "buyer@example.com" && u.StripeCustomerID == "cus_1" && u.Role == identity.RoleCustomer
	})).Return(nil)
	f.users.On("Update", mock.Anything, mock.MatchedBy(func(u *identity.User) bool {
		return u.ReferredByCode == "ALICE1234"
	})).Return(nil)
	f.subs.On("AttachUserByCustomer", mock.Anything, "cus_1", mock.Anything).Return(int64(1), nil)

	_, err := f.service.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Empty(t, created.PasswordHash)
	f.assertExpectations(t)
}

func TestHandleWebhook_CheckoutLinksExistingUser(t *testing.T) {
	f := newWebhookFixture(false)
	payload, header := signedEvent(t, "evt_9", EventCheckoutSessionCompleted, checkoutObject())

	existing, err := identity.NewUserWithHash("buyer@example.com", "", "", identity.RoleCustomer)
	require.NoError(t, err)
	existing.ReferredByCode = "FIRST0001"

	f.users.On("FindByStripeCustomerID", mock.Anything, "cus_1").Return(nil, shared.ErrNotFound)
	f.users.On("FindByEmail", mock.Anything, "Buyer@Example.com").Return(existing, nil)
	f.users.On("Update", mock.Anything, mock.MatchedBy(func(u *identity.User) bool {
		return u.StripeCustomerID == "cus_1" && u.ReferredByCode == "FIRST0001"
	})).Return(nil)
	f.subs.On("AttachUserByCustomer", mock.Anything, "cus_1", existing.ID).Return(int64(0), nil)

	_, err = f.service.HandleWebhook(context.Background(), payload, header)
	require.NoError(t, err)
	f.assertExpectations(t)
}
