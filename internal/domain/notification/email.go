// Package notification models outgoing transactional email and its delivery outbox.
package notification

import (
	"context"
	"strings"

	"github.com/tdhub/commandhub/internal/domain/shared"
)

// Kind tags an email with the flow that produced it
type Kind string

const (
	KindAffiliateInvite  Kind = "affiliate_invite"
	KindAffiliateWelcome Kind = "affiliate_welcome"
	KindMailingWelcome   Kind = "mailing_welcome"
)

// Email is a rendered message ready to send
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Kind    Kind
}

// Validate checks the fields every provider requires
func (e Email) Validate() error {
	if strings.TrimSpace(e.To) == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Recipient is required")
	}
	if strings.TrimSpace(e.Subject) == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Subject is required")
	}
	if e.HTML == "" && e.Text == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Body is required")
	}
	return nil
}

// Mailer delivers an email through a provider
type Mailer interface {
	Send(ctx context.Context, email Email) error
}
