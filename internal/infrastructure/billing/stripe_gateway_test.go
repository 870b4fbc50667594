package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/form"
	billingapp "github.com/tdhub/commandhub/internal/application/billing"
	"go.uber.org/zap"
)

// mockBackend implements stripe.Backend for testing
type mockBackend struct {
	handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)
}

func (m *mockBackend) Call(method, path, key string, params stripe.ParamsContainer, v stripe.LastResponseSetter) error {
	data, err := m.handler(method, path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (m *mockBackend) CallStreaming(method, path, key string, params stripe.ParamsContainer, v stripe.StreamingLastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallRaw(method, path, key string, body *form.Values, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallMultipart(method, path, key, boundary string, body *bytes.Buffer, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) SetMaxNetworkRetries(maxNetworkRetries int64) {}

func newTestGateway(t *testing.T, handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)) *StripeGateway {
	t.Helper()
	backend := &mockBackend{handler: handler}
	g, err := NewStripeGatewayWithBackends("sk_test_123", &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	}, zap.NewNop())
	require.NoError(t, err)
	return g
}

func TestNewStripeGateway_RequiresKey(t *testing.T) {
	_, err := NewStripeGateway("", nil)
	require.Error(t, err)
}

func TestStripeGateway_CreateCheckoutSession(t *testing.T) {
	var captured *stripe.CheckoutSessionParams
	g := newTestGateway(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if method == "POST" && path == "/v1/checkout/sessions" {
			captured = params.(*stripe.CheckoutSessionParams)
			return json.Marshal(&stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/cs_test_1"})
		}
		return nil, fmt.Errorf("unexpected call: %s %s", method, path)
	})

	sess, err := g.CreateCheckoutSession(context.Background(), billingapp.CheckoutRequest{
		Plan:          "pro",
		PriceID:       "price_pro",
		CustomerEmail: "buyer@example.com",
		ReferralCode:  "ALICE1234",
		SuccessURL:    "https://hub.test/success",
		CancelURL:     "https://hub.test/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_test_1", sess.URL)

	require.NotNil(t, captured)
	assert.Equal(t, "subscription", *captured.Mode)
	assert.Equal(t, "price_pro", *captured.LineItems[0].Price)
	assert.Equal(t, "buyer@example.com", *captured.CustomerEmail)
	assert.Nil(t, captured.Customer)
	assert.Equal(t, "ALICE1234", captured.Metadata["referral_code"])
	assert.Equal(t, "ALICE1234", captured.SubscriptionData.Metadata["referral_code"])
}

func TestStripeGateway_CreateCheckoutSession_ExistingCustomer(t *testing.T) {
	var captured *stripe.CheckoutSessionParams
	g := newTestGateway(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		captured = params.(*stripe.CheckoutSessionParams)
		return json.Marshal(&stripe.CheckoutSession{ID: "cs_2", URL: "u"})
	})

	_, err := g.CreateCheckoutSession(context.Background(), billingapp.CheckoutRequest{
		PriceID:       "price_pro",
		CustomerID:    "cus_1",
		CustomerEmail: "ignored@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_1", *captured.Customer)
	assert.Nil(t, captured.CustomerEmail)
}

func TestStripeGateway_CreateCheckoutSession_Error(t *testing.T) {
	g := newTestGateway(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		return nil, &stripe.Error{Code: stripe.ErrorCodeResourceMissing, Msg: "No such price"}
	})
	_, err := g.CreateCheckoutSession(context.Background(), billingapp.CheckoutRequest{PriceID: "price_x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkout session")
}

func TestStripeGateway_CreatePortalSession(t *testing.T) {
	g := newTestGateway(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if method == "POST" && path == "/v1/billing_portal/sessions" {
			p := params.(*stripe.BillingPortalSessionParams)
			assert.Equal(t, "cus_1", *p.Customer)
			assert.Equal(t, "https://hub.test/dashboard", *p.ReturnURL)
			return json.Marshal(&stripe.BillingPortalSession{ID: "bps_1", URL: "https://billing.stripe.com/p/1"})
		}
		return nil, fmt.Errorf("unexpected call: %s %s", method, path)
	})

	url, err := g.CreatePortalSession(context.Background(), "cus_1", "https://hub.test/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/1", url)
}
