// Package affiliate models time-limited, single-use affiliate invites.
package affiliate

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/identity"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

// Status is the lifecycle state of an invite
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRevoked  Status = "revoked"
)

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRevoked:
		return true
	}
	return false
}

// DefaultInviteTTL is how long a new invite stays acceptable
const DefaultInviteTTL = 7 * 24 * time.Hour

// Errors returned by the acceptance guard
var (
	ErrInviteNotFound    = shared.NewDomainError("INVITE_NOT_FOUND", "Invalid invite code")
	ErrInviteAlreadyUsed = shared.NewDomainError("INVITE_ALREADY_USED", "This invite has already been used")
	ErrInviteRevoked     = shared.NewDomainError("INVITE_REVOKED", "This invite has been revoked")
	ErrInviteExpired     = shared.NewDomainError("INVITE_EXPIRED", "This invite has expired")
)

// Affiliate is an invite row. It moves pending -> accepted once, or
// pending -> revoked by an admin. Expiry is implicit in ExpiresAt.
type Affiliate struct {
	shared.BaseAggregateRoot
	Name           string
	Email          string
	InviteCode     string
	ReferralCode   string
	Status         Status
	ExpiresAt      time.Time
	CreatedBy      *uuid.UUID
	AcceptedAt     *time.Time
	AcceptedUserID *uuid.UUID
}

// NewAffiliate creates a pending invite expiring ttl after now
func NewAffiliate(name, email, inviteCode, referralCode string, createdBy *uuid.UUID, now time.Time, ttl time.Duration) (*Affiliate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Name is required")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Name cannot exceed 200 characters")
	}
	email, err := identity.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if inviteCode == "" || referralCode == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Invite and referral codes are required")
	}
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}

	a := &Affiliate{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Email:             email,
		InviteCode:        inviteCode,
		ReferralCode:      referralCode,
		Status:            StatusPending,
		ExpiresAt:         now.Add(ttl).UTC(),
		CreatedBy:         createdBy,
	}
	a.AddDomainEvent(NewInvitedEvent(a))
	return a, nil
}

// IsExpired reports whether the invite can no longer be accepted because of its age
func (a *Affiliate) IsExpired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// CheckAcceptable applies the acceptance guard: status first, then expiry.
func (a *Affiliate) CheckAcceptable(now time.Time) error {
	switch a.Status {
	case StatusAccepted:
		return ErrInviteAlreadyUsed
	case StatusRevoked:
		return ErrInviteRevoked
	}
	if a.IsExpired(now) {
		return ErrInviteExpired
	}
	return nil
}

// Accept marks the invite as used by userID
func (a *Affiliate) Accept(userID uuid.UUID, now time.Time) error {
	if err := a.CheckAcceptable(now); err != nil {
		return err
	}
	at := now.UTC()
	a.Status = StatusAccepted
	a.AcceptedAt = &at
	a.AcceptedUserID = &userID
	a.UpdatedAt = at
	a.AddDomainEvent(NewAcceptedEvent(a, userID))
	return nil
}

// Revoke withdraws a pending invite
func (a *Affiliate) Revoke(now time.Time) error {
	switch a.Status {
	case StatusRevoked:
		return nil
	case StatusAccepted:
		return shared.NewDomainError("INVALID_STATE", "Accepted invites cannot be revoked")
	}
	a.Status = StatusRevoked
	a.UpdatedAt = now.UTC()
	a.AddDomainEvent(NewRevokedEvent(a))
	return nil
}
