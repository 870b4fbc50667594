package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/tdhub/commandhub/internal/application/billing"
	"github.com/tdhub/commandhub/internal/infrastructure/logger"
	"github.com/tdhub/commandhub/internal/interfaces/http/dto"
	"github.com/tdhub/commandhub/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// StripeSignatureHeader carries the webhook signature
const StripeSignatureHeader = "Stripe-Signature"

// WebhookProcessor verifies and applies Stripe events
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*billingapp.WebhookResult, error)
}

// CheckoutUseCase starts checkouts and reports entitlement
type CheckoutUseCase interface {
	CreateCheckout(ctx context.Context, in billingapp.CheckoutInput) (*billingapp.CheckoutResult, error)
	CreatePortal(ctx context.Context, userID uuid.UUID) (string, error)
	GetSubscription(ctx context.Context, userID uuid.UUID) (*billingapp.SubscriptionView, error)
}

// CheckoutRequest starts a Stripe Checkout Session
type CheckoutRequest struct {
	Plan         string `json:"plan" binding:"omitempty,max=50"`
	Email        string `json:"email" binding:"omitempty,email,max=254"`
	ReferralCode string `json:"referral_code" binding:"omitempty,max=32"`
}

// SubscriptionResponse is the caller's subscription summary
type SubscriptionResponse struct {
	Status            string     `json:"status,omitempty"`
	PriceID           string     `json:"price_id,omitempty"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	Entitled          bool       `json:"entitled"`
}

// PortalResponse carries the Billing Portal link
type PortalResponse struct {
	URL string `json:"url"`
}

// BillingHandler serves Stripe checkout, portal, subscription and webhook routes
type BillingHandler struct {
	BaseHandler
	webhooks       WebhookProcessor
	checkout       CheckoutUseCase
	maxPayloadSize int64
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(webhooks WebhookProcessor, checkout CheckoutUseCase) *BillingHandler {
	return &BillingHandler{
		webhooks:       webhooks,
		checkout:       checkout,
		maxPayloadSize: middleware.WebhookBodyLimit,
	}
}

// HandleWebhook receives Stripe events. The raw body is needed for signature
// verification, so it is read here rather than bound.
// @Summary      Stripe webhook
// @Description  Verify the Stripe signature and apply the event. Duplicate deliveries are acknowledged without reapplying.
// @Tags         stripe
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Stripe signature"
// @Param        payload body object true "Raw Stripe event"
// @Success      200 {object} dto.Response{data=billingapp.WebhookResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /stripe/webhook [post]
func (h *BillingHandler) HandleWebhook(c *gin.Context) {
	log := logger.L(c.Request.Context())

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxPayloadSize+1))
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			middleware.AbortTooLarge(c)
			return
		}
		log.Error("Failed to read Stripe webhook body", zap.Error(err))
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if int64(len(payload)) > h.maxPayloadSize {
		log.Warn("Stripe webhook payload too large", zap.Int("size", len(payload)))
		middleware.AbortTooLarge(c)
		return
	}

	signature := c.GetHeader(StripeSignatureHeader)
	if signature == "" {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeInvalidSignature, "Missing Stripe signature")
		return
	}

	result, err := h.webhooks.HandleWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if result != nil {
			// Processing failed after verification; a 5xx makes Stripe redeliver.
			log.Error("Stripe webhook event not applied", zap.String("event_id", result.EventID), zap.Error(err))
			h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "Failed to process webhook event")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// CreateCheckout starts a subscription checkout. A signed-in caller is
// linked to the session; anonymous buyers may pass an email.
// @Summary      Start checkout
// @Description  Create a Stripe Checkout Session for a plan
// @Tags         stripe
// @Accept       json
// @Produce      json
// @Param        request body CheckoutRequest false "Checkout options"
// @Success      200 {object} dto.Response{data=billingapp.CheckoutResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /stripe/checkout [post]
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	result, err := h.checkout.CreateCheckout(c.Request.Context(), billingapp.CheckoutInput{
		Plan:         req.Plan,
		Email:        req.Email,
		ReferralCode: req.ReferralCode,
		UserID:       optionalUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CreatePortal returns a Billing Portal URL for the caller
// @Summary      Billing portal
// @Description  Return a Stripe Billing Portal URL for the signed-in customer
// @Tags         stripe
// @Produce      json
// @Success      200 {object} dto.Response{data=PortalResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /stripe/portal [post]
func (h *BillingHandler) CreatePortal(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	url, err := h.checkout.CreatePortal(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PortalResponse{URL: url})
}

// GetSubscription returns the caller's latest subscription
// @Summary      Current subscription
// @Description  Return the caller's latest subscription and whether it grants access
// @Tags         subscription
// @Produce      json
// @Success      200 {object} dto.Response{data=SubscriptionResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /subscription [get]
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	view, err := h.checkout.GetSubscription(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := SubscriptionResponse{Entitled: view.Entitled}
	if sub := view.Subscription; sub != nil {
		resp.Status = string(sub.Status)
		resp.PriceID = sub.StripePriceID
		resp.CurrentPeriodEnd = sub.CurrentPeriodEnd
		resp.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	}
	h.Success(c, resp)
}
