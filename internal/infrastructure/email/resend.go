// Package email delivers notification emails through Resend and runs the
// email outbox.
package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/tdhub/commandhub/internal/domain/notification"
)

// ResendMailer sends email through the Resend API
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer creates a mailer for apiKey sending as from
func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

// NewResendMailerWithClient uses a preconfigured client (custom base URL in tests)
func NewResendMailerWithClient(client *resend.Client, from string) *ResendMailer {
	return &ResendMailer{client: client, from: from}
}

// Send delivers msg
func (m *ResendMailer) Send(ctx context.Context, msg notification.Email) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if msg.Kind != "" {
		req.Tags = []resend.Tag{{Name: "kind", Value: string(msg.Kind)}}
	}
	if _, err := m.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

var _ notification.Mailer = (*ResendMailer)(nil)
