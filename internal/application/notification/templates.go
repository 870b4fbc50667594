package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/tdhub/commandhub/internal/domain/notification"
)

var inviteTemplate = template.Must(template.New("invite").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<p>Hi {{.Name}},</p>
<p>You have been invited to join the TD affiliate program.</p>
<p><a href="{{.AcceptURL}}">Accept your invitation</a></p>
<p>Your invite code is <strong>{{.Code}}</strong>. It expires on {{.Expires}}.</p>
</body></html>`))

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<p>Welcome aboard, {{.Name}}!</p>
<p>Your referral code is <strong>{{.ReferralCode}}</strong>. Share it with customers at checkout.</p>
{{if .DashboardURL}}<p><a href="{{.DashboardURL}}">Open your dashboard</a></p>{{end}}
</body></html>`))

var mailingTemplate = template.Must(template.New("mailing").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<p>Hi{{if .Name}} {{.Name}}{{end}},</p>
<p>Thanks for subscribing to TD updates. We will keep you posted.</p>
</body></html>`))

// Templates renders transactional emails with links rooted at BaseURL
type Templates struct {
	BaseURL string
}

// NewTemplates creates templates for the given public base URL
func NewTemplates(baseURL string) *Templates {
	return &Templates{BaseURL: strings.TrimRight(baseURL, "/")}
}

// AcceptURL is the signup link carried by an invitation
func (t *Templates) AcceptURL(code string) string {
	return t.BaseURL + "/affiliate/join?code=" + url.QueryEscape(code)
}

// AffiliateInvite renders the invitation email
func (t *Templates) AffiliateInvite(name, email, code string, expiresAt time.Time) (notification.Email, error) {
	acceptURL := t.AcceptURL(code)
	expires := expiresAt.UTC().Format("January 2, 2006")
	html, err := render(inviteTemplate, map[string]string{
		"Name":      name,
		"AcceptURL": acceptURL,
		"Code":      code,
		"Expires":   expires,
	})
	if err != nil {
		return notification.Email{}, err
	}
	return notification.Email{
		To:      email,
		Subject: "You're invited to the TD affiliate program",
		HTML:    html,
		Text: fmt.Sprintf("Hi %s,\n\nYou have been invited to join the TD affiliate program.\nAccept here: %s\nInvite code: %s (expires %s)\n",
			name, acceptURL, code, expires),
		Kind: notification.KindAffiliateInvite,
	}, nil
}

// AffiliateWelcome renders the email sent after an invite is accepted
func (t *Templates) AffiliateWelcome(name, email, referralCode string) (notification.Email, error) {
	dashboardURL := ""
	if t.BaseURL != "" {
		dashboardURL = t.BaseURL + "/dashboard"
	}
	html, err := render(welcomeTemplate, map[string]string{
		"Name":         name,
		"ReferralCode": referralCode,
		"DashboardURL": dashboardURL,
	})
	if err != nil {
		return notification.Email{}, err
	}
	return notification.Email{
		To:      email,
		Subject: "Welcome to the TD affiliate program",
		HTML:    html,
		Text:    fmt.Sprintf("Welcome aboard, %s!\n\nYour referral code is %s.\n", name, referralCode),
		Kind:    notification.KindAffiliateWelcome,
	}, nil
}

// MailingWelcome renders the mailing list confirmation
func (t *Templates) MailingWelcome(name, email string) (notification.Email, error) {
	html, err := render(mailingTemplate, map[string]string{"Name": name})
	if err != nil {
		return notification.Email{}, err
	}
	return notification.Email{
		To:      email,
		Subject: "Thanks for subscribing",
		HTML:    html,
		Text:    "Thanks for subscribing to TD updates. We will keep you posted.\n",
		Kind:    notification.KindMailingWelcome,
	}, nil
}

func render(tpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return buf.String(), nil
}
