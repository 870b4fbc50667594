package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/tdhub/commandhub/internal/domain/billing"
	"github.com/tdhub/commandhub/internal/domain/identity"
	"github.com/tdhub/commandhub/internal/domain/shared"
	"go.uber.org/zap"
)

// Stripe event types handled by the reconciler
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaid              = "invoice.paid"
	EventInvoicePaymentSucceeded  = "invoice.payment_succeeded"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
)

// DefaultWebhookIdempotencyWindow is how long processed event ids are remembered
const DefaultWebhookIdempotencyWindow = 24 * time.Hour

var (
	ErrInvalidSignature     = shared.NewDomainError("INVALID_SIGNATURE", "Invalid webhook signature")
	ErrWebhookNotConfigured = shared.NewDomainError("WEBHOOK_NOT_CONFIGURED", "Stripe webhook is not configured")
	errNoCheckoutIdentity   = errors.New("checkout session has neither customer nor email")
)

// WebhookService verifies and applies Stripe webhook events
type WebhookService struct {
	secret         string
	users          identity.UserRepository
	subscriptions  billing.SubscriptionRepository
	payments       billing.PaymentRepository
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	events         shared.EventPublisher
	logger         *zap.Logger
}

// WebhookServiceConfig contains the dependencies of WebhookService
type WebhookServiceConfig struct {
	WebhookSecret  string
	Users          identity.UserRepository
	Subscriptions  billing.SubscriptionRepository
	Payments       billing.PaymentRepository
	Idempotency    shared.IdempotencyStore // optional
	IdempotencyTTL time.Duration
	Events         shared.EventPublisher // optional
	Logger         *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = DefaultWebhookIdempotencyWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &WebhookService{
		secret:         cfg.WebhookSecret,
		users:          cfg.Users,
		subscriptions:  cfg.Subscriptions,
		payments:       cfg.Payments,
		idempotency:    cfg.Idempotency,
		idempotencyTTL: cfg.IdempotencyTTL,
		events:         cfg.Events,
		logger:         cfg.Logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HandleWebhook verifies the signature and applies the event. Nothing is read
// from or written to the store until the signature has been checked.
func (s *WebhookService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.secret == "" {
		return nil, ErrWebhookNotConfigured
	}
	if signature == "" {
		return nil, ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.logger.Warn("Failed to verify webhook signature", zap.Error(err))
		return nil, shared.NewDomainErrorWithCause(ErrInvalidSignature.Code, ErrInvalidSignature.Message, err)
	}

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}
	log := s.logger.With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))

	if s.idempotency != nil {
		seen, err := s.idempotency.IsProcessed(ctx, event.ID)
		if err != nil {
			log.Warn("Idempotency lookup failed, processing anyway", zap.Error(err))
		} else if seen {
			log.Info("Skipping already processed webhook event")
			result.Duplicate = true
			result.Message = "Event already processed"
			return result, nil
		}
	}

	log.Info("Processing Stripe webhook event")

	switch string(event.Type) {
	case EventCheckoutSessionCompleted:
		err = s.handleCheckoutCompleted(ctx, event)
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		err = s.handleSubscriptionChanged(ctx, event, false)
	case EventSubscriptionDeleted:
		err = s.handleSubscriptionChanged(ctx, event, true)
	case EventInvoicePaid, EventInvoicePaymentSucceeded:
		err = s.handleInvoicePaid(ctx, event)
	case EventInvoicePaymentFailed:
		err = s.handleInvoicePaymentFailed(event)
	default:
		log.Debug("Unhandled webhook event type")
		result.Message = "Event type not handled"
	}

	if err != nil {
		log.Error("Failed to process webhook event", zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	if s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, event.ID, s.idempotencyTTL); err != nil {
			log.Warn("Failed to record processed webhook event", zap.Error(err))
		}
	}
	return result, nil
}

// handleCheckoutCompleted links or creates the purchasing user
func (s *WebhookService) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	email := session.CustomerEmail
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		email = session.CustomerDetails.Email
	}
	referral := session.Metadata["referral_code"]

	if customerID == "" && email == "" {
		s.logger.Warn("Checkout session has no customer, skipping", zap.String("session_id", session.ID))
		return nil
	}

	user, err := s.resolveCheckoutUser(ctx, customerID, email)
	if err != nil {
		if errors.Is(err, errNoCheckoutIdentity) {
			s.logger.Warn("Checkout session user could not be resolved", zap.String("session_id", session.ID))
			return nil
		}
		return err
	}

	changed := user.LinkStripeCustomer(customerID)
	if user.SetReferredBy(referral) {
		changed = true
	}
	if changed {
		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
	}

	if customerID != "" {
		n, err := s.subscriptions.AttachUserByCustomer(ctx, customerID, user.ID)
		if err != nil {
			return fmt.Errorf("failed to attach subscriptions: %w", err)
		}
		if n > 0 {
			s.logger.Info("Attached earlier subscriptions to user",
				zap.String("user_id", user.ID.String()),
				zap.Int64("count", n))
		}
	}

	s.logger.Info("Checkout completed",
		zap.String("session_id", session.ID),
		zap.String("user_id", user.ID.String()),
		zap.String("customer_id", customerID))
	return nil
}

// resolveCheckoutUser finds the user by Stripe customer, then by email, and
// creates a password-less customer when neither matches
func (s *WebhookService) resolveCheckoutUser(ctx context.Context, customerID, email string) (*identity.User, error) {
	if customerID != "" {
		user, err := s.users.FindByStripeCustomerID(ctx, customerID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("failed to find user by customer: %w", err)
		}
	}
	if email == "" {
		return nil, errNoCheckoutIdentity
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	user, err = identity.NewCustomer(email, customerID)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// a concurrent delivery created the row first
			return s.users.FindByEmail(ctx, email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// handleSubscriptionChanged mirrors the subscription by its Stripe id
func (s *WebhookService) handleSubscriptionChanged(ctx context.Context, event stripe.Event, deleted bool) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}
	if sub.ID == "" {
		return errors.New("subscription event without id")
	}

	state := subscriptionState(&sub)
	if deleted {
		state.Status = billing.SubscriptionStatusCanceled
		if state.CanceledAt == nil {
			at := unixTime(event.Created)
			if at == nil {
				now := time.Now().UTC()
				at = &now
			}
			state.CanceledAt = at
		}
	}

	userID, err := s.userIDForCustomer(ctx, state.StripeCustomerID)
	if err != nil {
		return err
	}

	existing, err := s.subscriptions.FindByStripeID(ctx, sub.ID)
	switch {
	case err == nil:
		existing.Apply(userID, state)
	case errors.Is(err, shared.ErrNotFound):
		existing, err = billing.NewSubscription(userID, state)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("failed to find subscription: %w", err)
	}

	if err := s.subscriptions.Upsert(ctx, existing); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	s.publish(ctx, existing.GetDomainEvents()...)
	existing.ClearDomainEvents()

	s.logger.Info("Subscription reconciled",
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(existing.Status)),
		zap.Bool("user_known", userID != nil))
	return nil
}

// handleInvoicePaid appends one ledger row per invoice
func (s *WebhookService) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	customerID := ""
	if invoice.Customer != nil {
		customerID = invoice.Customer.ID
	}
	subscriptionID := ""
	if invoice.Subscription != nil {
		subscriptionID = invoice.Subscription.ID
	}

	userID, err := s.userIDForCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	paidAt := time.Time{}
	if invoice.StatusTransitions != nil {
		if t := unixTime(invoice.StatusTransitions.PaidAt); t != nil {
			paidAt = *t
		}
	}
	if paidAt.IsZero() {
		if t := unixTime(event.Created); t != nil {
			paidAt = *t
		}
	}

	payment, err := billing.NewPayment(userID, invoice.ID, subscriptionID, customerID,
		invoice.AmountPaid, string(invoice.Currency), string(invoice.Status), paidAt)
	if err != nil {
		return err
	}

	inserted, err := s.payments.Record(ctx, payment)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	if !inserted {
		s.logger.Info("Invoice already recorded", zap.String("invoice_id", invoice.ID))
		return nil
	}

	s.publish(ctx, billing.NewPaymentRecordedEvent(payment))
	s.logger.Info("Payment recorded",
		zap.String("invoice_id", invoice.ID),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("currency", payment.Currency))
	return nil
}

// handleInvoicePaymentFailed only logs; the subscription.updated event that
// follows carries the new status
func (s *WebhookService) handleInvoicePaymentFailed(event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}
	customerID := ""
	if invoice.Customer != nil {
		customerID = invoice.Customer.ID
	}
	s.logger.Warn("Invoice payment failed",
		zap.String("invoice_id", invoice.ID),
		zap.String("customer_id", customerID),
		zap.Int64("attempt_count", invoice.AttemptCount))
	return nil
}

// userIDForCustomer returns nil when the customer has no local user yet
func (s *WebhookService) userIDForCustomer(ctx context.Context, customerID string) (*uuid.UUID, error) {
	if customerID == "" {
		return nil, nil
	}
	user, err := s.users.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("No user for Stripe customer", zap.String("customer_id", customerID))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	id := user.ID
	return &id, nil
}

func (s *WebhookService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish billing events", zap.Error(err))
	}
}

func subscriptionState(sub *stripe.Subscription) billing.SubscriptionState {
	state := billing.SubscriptionState{
		StripeSubscriptionID: sub.ID,
		Status:               billing.SubscriptionStatus(sub.Status),
		CurrentPeriodStart:   unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:     unixTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		CanceledAt:           unixTime(sub.CanceledAt),
	}
	if sub.Customer != nil {
		state.StripeCustomerID = sub.Customer.ID
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item != nil && item.Price != nil && item.Price.ID != "" {
				state.StripePriceID = item.Price.ID
				break
			}
		}
	}
	return state
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
