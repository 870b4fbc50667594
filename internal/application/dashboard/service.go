// Package dashboard assembles the summary shown on /dashboard.
package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	billingapp "github.com/tdhub/commandhub/internal/application/billing"
	identityapp "github.com/tdhub/commandhub/internal/application/identity"
	"github.com/tdhub/commandhub/internal/domain/affiliate"
	"github.com/tdhub/commandhub/internal/domain/billing"
	"github.com/tdhub/commandhub/internal/domain/identity"
	"go.uber.org/zap"
)

// UserReader loads the signed-in user
type UserReader interface {
	CurrentUser(ctx context.Context, userID uuid.UUID) (*identityapp.UserInfo, error)
}

// SubscriptionReader loads the user's subscription
type SubscriptionReader interface {
	GetSubscription(ctx context.Context, userID uuid.UUID) (*billingapp.SubscriptionView, error)
}

// InviteCounter counts invites by status
type InviteCounter interface {
	CountByStatus(ctx context.Context) (map[affiliate.Status]int64, error)
}

// SubscriptionCounter counts subscriptions by status
type SubscriptionCounter interface {
	CountByStatus(ctx context.Context) (map[billing.SubscriptionStatus]int64, error)
}

// PaymentTotaler sums payments by currency
type PaymentTotaler interface {
	Totals(ctx context.Context) (map[string]decimal.Decimal, error)
}

// SubscriberCounter counts mailing list subscribers
type SubscriberCounter interface {
	Count(ctx context.Context) (int64, error)
}

// SubscriptionSummary is the caller's entitlement
type SubscriptionSummary struct {
	Status            string     `json:"status,omitempty"`
	Entitled          bool       `json:"entitled"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
}

// AdminSummary carries business totals for administrators
type AdminSummary struct {
	Invites             map[string]int64           `json:"invites"`
	Subscriptions       map[string]int64           `json:"subscriptions"`
	ActiveSubscriptions int64                      `json:"active_subscriptions"`
	PaymentTotals       map[string]decimal.Decimal `json:"payment_totals"`
	Subscribers         int64                      `json:"subscribers"`
}

// Summary is the dashboard payload
type Summary struct {
	User         *identityapp.UserInfo `json:"user"`
	Subscription SubscriptionSummary   `json:"subscription"`
	Admin        *AdminSummary         `json:"admin,omitempty"`
	GeneratedAt  time.Time             `json:"generated_at"`
}

// Sources groups the readers the dashboard draws from
type Sources struct {
	Users         UserReader
	Subscriptions SubscriptionReader
	Invites       InviteCounter
	SubCounts     SubscriptionCounter
	Payments      PaymentTotaler
	Subscribers   SubscriberCounter
}

// Service builds dashboard summaries
type Service struct {
	src    Sources
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a dashboard service
func NewService(src Sources, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{src: src, logger: logger, now: time.Now}
}

// Summary returns the dashboard for userID. Admins also get business totals.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	user, err := s.src.Users.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &Summary{User: user, GeneratedAt: s.now().UTC()}

	view, err := s.src.Subscriptions.GetSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if view != nil && view.Subscription != nil {
		out.Subscription = SubscriptionSummary{
			Status:            string(view.Subscription.Status),
			Entitled:          view.Entitled,
			CurrentPeriodEnd:  view.Subscription.CurrentPeriodEnd,
			CancelAtPeriodEnd: view.Subscription.CancelAtPeriodEnd,
		}
	}

	if user.Role == string(identity.RoleAdmin) {
		admin, err := s.adminSummary(ctx)
		if err != nil {
			return nil, err
		}
		out.Admin = admin
	}
	return out, nil
}

func (s *Service) adminSummary(ctx context.Context) (*AdminSummary, error) {
	out := &AdminSummary{
		Invites:       map[string]int64{},
		Subscriptions: map[string]int64{},
		PaymentTotals: map[string]decimal.Decimal{},
	}

	invites, err := s.src.Invites.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for status, n := range invites {
		out.Invites[string(status)] = n
	}

	subs, err := s.src.SubCounts.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for status, n := range subs {
		out.Subscriptions[string(status)] = n
		if status.Entitles() {
			out.ActiveSubscriptions += n
		}
	}

	totals, err := s.src.Payments.Totals(ctx)
	if err != nil {
		return nil, err
	}
	for currency, amount := range totals {
		out.PaymentTotals[currency] = amount
	}

	if s.src.Subscribers != nil {
		n, err := s.src.Subscribers.Count(ctx)
		if err != nil {
			s.logger.Warn("Failed to count subscribers", zap.Error(err))
		} else {
			out.Subscribers = n
		}
	}
	return out, nil
}
