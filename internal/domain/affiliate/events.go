package affiliate

import (
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

const (
	AggregateType = "Affiliate"

	EventTypeInvited  = "affiliate.invited"
	EventTypeAccepted = "affiliate.accepted"
	EventTypeRevoked  = "affiliate.revoked"
)

// InvitedEvent is raised when an admin creates an invite
type InvitedEvent struct {
	shared.BaseDomainEvent
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	InviteCode string    `json:"invite_code"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// NewInvitedEvent creates an InvitedEvent
func NewInvitedEvent(a *Affiliate) *InvitedEvent {
	return &InvitedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvited, AggregateType, a.ID),
		Name:            a.Name,
		Email:           a.Email,
		InviteCode:      a.InviteCode,
		ExpiresAt:       a.ExpiresAt,
	}
}

// AcceptedEvent is raised when an invite is accepted
type AcceptedEvent struct {
	shared.BaseDomainEvent
	UserID       uuid.UUID `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	ReferralCode string    `json:"referral_code"`
}

// NewAcceptedEvent creates an AcceptedEvent
func NewAcceptedEvent(a *Affiliate, userID uuid.UUID) *AcceptedEvent {
	return &AcceptedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccepted, AggregateType, a.ID),
		UserID:          userID,
		Name:            a.Name,
		Email:           a.Email,
		ReferralCode:    a.ReferralCode,
	}
}

// RevokedEvent is raised when an admin revokes an invite
type RevokedEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
}

// NewRevokedEvent creates a RevokedEvent
func NewRevokedEvent(a *Affiliate) *RevokedEvent {
	return &RevokedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRevoked, AggregateType, a.ID),
		Email:           a.Email,
	}
}
