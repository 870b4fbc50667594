package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/identity"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

// UserModel is the persistence model for identity.User
type UserModel struct {
	BaseModel
	Email            string        `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash     string        `gorm:"type:varchar(255);not null;default:''"`
	DisplayName      string        `gorm:"type:varchar(200);not null;default:''"`
	Role             identity.Role `gorm:"type:varchar(20);not null;index"`
	StripeCustomerID *string       `gorm:"type:varchar(255);uniqueIndex"`
	ReferredByCode   string        `gorm:"type:varchar(32);not null;default:'';index"`
	LastLoginAt      *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// UserModelFromDomain converts a domain user
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		DisplayName:      u.DisplayName,
		Role:             u.Role,
		StripeCustomerID: nullable(u.StripeCustomerID),
		ReferredByCode:   u.ReferredByCode,
		LastLoginAt:      u.LastLoginAt,
	}
	m.fromEntity(u.BaseEntity)
	return m
}

// ToDomain converts to a domain user
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.toEntity()},
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		DisplayName:       m.DisplayName,
		Role:              m.Role,
		StripeCustomerID:  deref(m.StripeCustomerID),
		ReferredByCode:    m.ReferredByCode,
		LastLoginAt:       m.LastLoginAt,
	}
}

// ProfileModel is the persistence model for identity.Profile
type ProfileModel struct {
	BaseModel
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	AffiliateID  uuid.UUID `gorm:"type:uuid;not null;index"`
	DisplayName  string    `gorm:"type:varchar(200);not null;default:''"`
	ReferralCode string    `gorm:"type:varchar(32);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (ProfileModel) TableName() string {
	return "affiliate_profiles"
}

// ProfileModelFromDomain converts a domain profile
func ProfileModelFromDomain(p *identity.Profile) *ProfileModel {
	m := &ProfileModel{
		UserID:       p.UserID,
		AffiliateID:  p.AffiliateID,
		DisplayName:  p.DisplayName,
		ReferralCode: p.ReferralCode,
	}
	m.fromEntity(p.BaseEntity)
	return m
}

// ToDomain converts to a domain profile
func (m *ProfileModel) ToDomain() *identity.Profile {
	return &identity.Profile{
		BaseEntity:   m.toEntity(),
		UserID:       m.UserID,
		AffiliateID:  m.AffiliateID,
		DisplayName:  m.DisplayName,
		ReferralCode: m.ReferralCode,
	}
}
