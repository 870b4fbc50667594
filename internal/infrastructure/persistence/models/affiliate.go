package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/affiliate"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

// AffiliateModel is the persistence model for affiliate.Affiliate.
// Both codes carry unique indexes; the generator's existence check is only
// the first line of defence.
type AffiliateModel struct {
	BaseModel
	Name           string           `gorm:"type:varchar(200);not null"`
	Email          string           `gorm:"type:varchar(200);not null;index"`
	InviteCode     string           `gorm:"type:varchar(16);not null;uniqueIndex"`
	ReferralCode   string           `gorm:"type:varchar(32);not null;uniqueIndex"`
	Status         affiliate.Status `gorm:"type:varchar(20);not null;index"`
	ExpiresAt      time.Time        `gorm:"not null"`
	CreatedBy      *uuid.UUID       `gorm:"type:uuid"`
	AcceptedAt     *time.Time
	AcceptedUserID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (AffiliateModel) TableName() string {
	return "affiliates"
}

// AffiliateModelFromDomain converts a domain invite
func AffiliateModelFromDomain(a *affiliate.Affiliate) *AffiliateModel {
	m := &AffiliateModel{
		Name:           a.Name,
		Email:          a.Email,
		InviteCode:     a.InviteCode,
		ReferralCode:   a.ReferralCode,
		Status:         a.Status,
		ExpiresAt:      a.ExpiresAt,
		CreatedBy:      a.CreatedBy,
		AcceptedAt:     a.AcceptedAt,
		AcceptedUserID: a.AcceptedUserID,
	}
	m.fromEntity(a.BaseEntity)
	return m
}

// ToDomain converts to a domain invite
func (m *AffiliateModel) ToDomain() *affiliate.Affiliate {
	return &affiliate.Affiliate{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: m.toEntity()},
		Name:              m.Name,
		Email:             m.Email,
		InviteCode:        m.InviteCode,
		ReferralCode:      m.ReferralCode,
		Status:            m.Status,
		ExpiresAt:         m.ExpiresAt,
		CreatedBy:         m.CreatedBy,
		AcceptedAt:        m.AcceptedAt,
		AcceptedUserID:    m.AcceptedUserID,
	}
}
