package identity

import (
	"strings"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

// Profile is the affiliate-facing record created when an invite is accepted
type Profile struct {
	shared.BaseEntity
	UserID       uuid.UUID
	AffiliateID  uuid.UUID
	DisplayName  string
	ReferralCode string
}

// NewProfile creates a profile for an accepted affiliate
func NewProfile(userID, affiliateID uuid.UUID, displayName, referralCode string) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER_ID", "User ID is required")
	}
	referralCode = strings.TrimSpace(referralCode)
	if referralCode == "" {
		return nil, shared.NewDomainError("INVALID_REFERRAL_CODE", "Referral code is required")
	}
	return &Profile{
		BaseEntity:   shared.NewBaseEntity(),
		UserID:       userID,
		AffiliateID:  affiliateID,
		DisplayName:  strings.TrimSpace(displayName),
		ReferralCode: referralCode,
	}, nil
}
