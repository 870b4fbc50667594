// Package mailing holds the newsletter signup list.
package mailing

import (
	"context"
	"strings"

	"github.com/tdhub/commandhub/internal/domain/identity"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

// Subscriber is one address on the mailing list
type Subscriber struct {
	shared.BaseEntity
	Email  string
	Name   string
	Source string
}

// NewSubscriber validates and creates a subscriber
func NewSubscriber(email, name, source string) (*Subscriber, error) {
	email, err := identity.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Name cannot exceed 200 characters")
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = "website"
	}
	if len(source) > 50 {
		source = source[:50]
	}
	return &Subscriber{
		BaseEntity: shared.NewBaseEntity(),
		Email:      email,
		Name:       name,
		Source:     source,
	}, nil
}

// Repository persists subscribers
type Repository interface {
	// Create inserts s; it returns false without error when the email is already subscribed
	Create(ctx context.Context, s *Subscriber) (bool, error)
	Count(ctx context.Context) (int64, error)
}
