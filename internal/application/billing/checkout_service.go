package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/affiliate"
	"github.com/tdhub/commandhub/internal/domain/billing"
	"github.com/tdhub/commandhub/internal/domain/identity"
	"github.com/tdhub/commandhub/internal/domain/shared"
	"go.uber.org/zap"
)

var (
	ErrBillingNotConfigured = shared.NewDomainError("BILLING_NOT_CONFIGURED", "Billing is not configured")
	ErrPlanNotFound         = shared.NewDomainError("PLAN_NOT_FOUND", "Unknown plan")
	ErrNoBillingAccount     = shared.NewDomainError("NO_BILLING_ACCOUNT", "No billing account for this user")
)

// CheckoutConfig holds plan prices and redirect URLs
type CheckoutConfig struct {
	Prices       map[string]string
	DefaultPlan  string
	SuccessURL   string
	CancelURL    string
	PortalReturn string
}

// CheckoutInput is a checkout request from the pricing page
type CheckoutInput struct {
	Plan         string
	Email        string
	ReferralCode string
	UserID       *uuid.UUID
}

// CheckoutResult is returned to the client for redirection
type CheckoutResult struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// SubscriptionView is the caller's subscription summary
type SubscriptionView struct {
	Subscription *billing.Subscription
	Entitled     bool
}

// CheckoutService starts checkouts, opens the billing portal and reports entitlement
type CheckoutService struct {
	gateway       Gateway
	config        CheckoutConfig
	users         identity.UserRepository
	profiles      identity.ProfileRepository
	subscriptions billing.SubscriptionRepository
	logger        *zap.Logger
}

// NewCheckoutService creates a CheckoutService. gateway may be nil when Stripe is not configured.
func NewCheckoutService(
	gateway Gateway,
	cfg CheckoutConfig,
	users identity.UserRepository,
	profiles identity.ProfileRepository,
	subscriptions billing.SubscriptionRepository,
	logger *zap.Logger,
) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		gateway:       gateway,
		config:        cfg,
		users:         users,
		profiles:      profiles,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// CreateCheckout creates a subscription Checkout Session for a plan
func (s *CheckoutService) CreateCheckout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if s.gateway == nil {
		return nil, ErrBillingNotConfigured
	}

	plan := strings.ToLower(strings.TrimSpace(in.Plan))
	if plan == "" {
		plan = s.config.DefaultPlan
	}
	priceID := s.config.Prices[plan]
	if priceID == "" {
		return nil, shared.NewDomainError(ErrPlanNotFound.Code, fmt.Sprintf("Unknown plan: %s", plan))
	}

	req := CheckoutRequest{
		Plan:       plan,
		PriceID:    priceID,
		SuccessURL: s.config.SuccessURL,
		CancelURL:  s.config.CancelURL,
	}

	if in.Email != "" {
		email, err := identity.NormalizeEmail(in.Email)
		if err != nil {
			return nil, err
		}
		req.CustomerEmail = email
	}

	if in.UserID != nil {
		user, err := s.users.FindByID(ctx, *in.UserID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if user != nil {
			req.CustomerID = user.StripeCustomerID
			req.CustomerEmail = user.Email
			req.ClientReferenceID = user.ID.String()
		}
	}

	req.ReferralCode = s.validReferral(ctx, in.ReferralCode)

	sess, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, shared.NewDomainErrorWithCause("PAYMENT_PROVIDER_ERROR", "Could not start checkout", err)
	}
	return &CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// validReferral returns the normalized code when it belongs to an affiliate,
// otherwise an empty string. Unknown codes never block a purchase.
func (s *CheckoutService) validReferral(ctx context.Context, code string) string {
	code = affiliate.NormalizeCode(code)
	if code == "" || s.profiles == nil {
		return code
	}
	if _, err := s.profiles.FindByReferralCode(ctx, code); err != nil {
		s.logger.Info("Ignoring unknown referral code", zap.String("referral_code", code), zap.Error(err))
		return ""
	}
	return code
}

// CreatePortal returns a Billing Portal URL for the user's Stripe customer
func (s *CheckoutService) CreatePortal(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.gateway == nil {
		return "", ErrBillingNotConfigured
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID == "" {
		return "", ErrNoBillingAccount
	}
	url, err := s.gateway.CreatePortalSession(ctx, user.StripeCustomerID, s.config.PortalReturn)
	if err != nil {
		return "", shared.NewDomainErrorWithCause("PAYMENT_PROVIDER_ERROR", "Could not open billing portal", err)
	}
	return url, nil
}

// GetSubscription returns the user's latest subscription and whether it entitles
func (s *CheckoutService) GetSubscription(ctx context.Context, userID uuid.UUID) (*SubscriptionView, error) {
	sub, err := s.subscriptions.FindLatestForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &SubscriptionView{}, nil
		}
		return nil, err
	}
	return &SubscriptionView{Subscription: sub, Entitled: sub.IsEntitled()}, nil
}
