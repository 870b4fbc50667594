package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/identity"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
	IP       string // client IP, logged only
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
	User      UserInfo
}

// UserInfo is the public view of a user
type UserInfo struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	DisplayName    string     `json:"display_name"`
	Role           string     `json:"role"`
	ReferralCode   string     `json:"referral_code,omitempty"`
	HasBilling     bool       `json:"has_billing"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ReferredByCode string     `json:"referred_by_code,omitempty"`
}

// ToUserInfo converts a domain user
func ToUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:             u.ID,
		Email:          u.Email,
		DisplayName:    u.DisplayName,
		Role:           string(u.Role),
		HasBilling:     u.StripeCustomerID != "",
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		ReferredByCode: u.ReferredByCode,
	}
}
