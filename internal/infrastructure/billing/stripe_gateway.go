// Package billing talks to the Stripe API for checkout and the customer portal.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	billingapp "github.com/tdhub/commandhub/internal/application/billing"
	"go.uber.org/zap"
)

var _ billingapp.Gateway = (*StripeGateway)(nil)

// StripeGateway creates hosted Checkout and Billing Portal sessions
type StripeGateway struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeGateway creates a gateway using the default Stripe backends
func NewStripeGateway(secretKey string, logger *zap.Logger) (*StripeGateway, error) {
	return NewStripeGatewayWithBackends(secretKey, nil, logger)
}

// NewStripeGatewayWithBackends creates a gateway against custom backends (tests, stripe-mock)
func NewStripeGatewayWithBackends(secretKey string, backends *stripe.Backends, logger *zap.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeGateway{
		api:    client.New(secretKey, backends),
		logger: logger,
	}, nil
}

// CreateCheckoutSession starts a subscription-mode Checkout Session
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req billingapp.CheckoutRequest) (*billingapp.CheckoutSession, error) {
	metadata := map[string]string{}
	if req.ReferralCode != "" {
		metadata["referral_code"] = req.ReferralCode
	}
	if req.Plan != "" {
		metadata["plan"] = req.Plan
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:          stripe.String(req.SuccessURL),
		CancelURL:           stripe.String(req.CancelURL),
		AllowPromotionCodes: stripe.Bool(true),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	params.Metadata = metadata

	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	} else if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe checkout session",
			zap.String("price_id", req.PriceID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	g.logger.Info("Created Stripe checkout session",
		zap.String("session_id", sess.ID),
		zap.String("price_id", req.PriceID))

	return &billingapp.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// CreatePortalSession returns a Billing Portal URL for the customer
func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer: stripe.String(customerID),
	}
	if returnURL != "" {
		params.ReturnURL = stripe.String(returnURL)
	}
	params.Context = ctx

	sess, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe billing portal session",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return "", fmt.Errorf("stripe: failed to create portal session: %w", err)
	}
	return sess.URL, nil
}
