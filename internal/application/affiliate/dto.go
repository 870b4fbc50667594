package affiliate

import (
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/affiliate"
)

// CreateInviteInput is an admin's invite request
type CreateInviteInput struct {
	Name      string
	Email     string
	CreatedBy *uuid.UUID
}

// AcceptInviteInput is the signup form of an invited affiliate
type AcceptInviteInput struct {
	Code        string
	Password    string
	DisplayName string
}

// AcceptResult is returned after a successful acceptance
type AcceptResult struct {
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	ReferralCode string    `json:"referral_code"`
}

// InviteView is the admin view of an invite
type InviteView struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	InviteCode     string     `json:"invite_code"`
	ReferralCode   string     `json:"referral_code"`
	Status         string     `json:"status"`
	Expired        bool       `json:"expired"`
	ExpiresAt      time.Time  `json:"expires_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	AcceptedUserID *uuid.UUID `json:"accepted_user_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// PublicInviteView is what the signup page may show for a code
type PublicInviteView struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	Expired   bool      `json:"expired"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toInviteView(a *affiliate.Affiliate, now time.Time) InviteView {
	return InviteView{
		ID:             a.ID,
		Name:           a.Name,
		Email:          a.Email,
		InviteCode:     a.InviteCode,
		ReferralCode:   a.ReferralCode,
		Status:         string(a.Status),
		Expired:        a.Status == affiliate.StatusPending && a.IsExpired(now),
		ExpiresAt:      a.ExpiresAt,
		AcceptedAt:     a.AcceptedAt,
		AcceptedUserID: a.AcceptedUserID,
		CreatedAt:      a.CreatedAt,
	}
}
