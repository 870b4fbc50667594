package models

import (
	"github.com/tdhub/commandhub/internal/domain/mailing"
)

// MailingSubscriberModel is the persistence model for mailing.Subscriber
type MailingSubscriberModel struct {
	BaseModel
	Email  string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Name   string `gorm:"type:varchar(200);not null;default:''"`
	Source string `gorm:"type:varchar(50);not null;default:'website'"`
}

// TableName returns the table name for GORM
func (MailingSubscriberModel) TableName() string {
	return "mailing_list_subscribers"
}

// MailingSubscriberModelFromDomain converts a domain subscriber
func MailingSubscriberModelFromDomain(s *mailing.Subscriber) *MailingSubscriberModel {
	m := &MailingSubscriberModel{Email: s.Email, Name: s.Name, Source: s.Source}
	m.fromEntity(s.BaseEntity)
	return m
}
