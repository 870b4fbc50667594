// Package billing reconciles Stripe webhooks into local subscription state
// and starts hosted checkout and portal sessions.
package billing

import "context"

// CheckoutRequest describes a subscription checkout
type CheckoutRequest struct {
	Plan              string
	PriceID           string
	CustomerID        string
	CustomerEmail     string
	ReferralCode      string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
}

// CheckoutSession is a created hosted checkout page
type CheckoutSession struct {
	ID  string
	URL string
}

// Gateway is the payment provider API used outside webhooks
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
