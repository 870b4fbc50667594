// Package ai adapts the Anthropic and OpenAI SDKs to chat.Provider.
package ai

import (
	"context"
	"errors"
	"time"

	"github.com/tdhub/commandhub/internal/domain/chat"
)

// ErrNotConfigured is returned by providers that have no API key
var ErrNotConfigured = errors.New("provider not configured")

// ErrEmptyReply is returned when the upstream answered without text
var ErrEmptyReply = errors.New("provider returned no text")

// Options are shared by both providers
type Options struct {
	APIKey       string
	Model        string
	MaxTokens    int
	SystemPrompt string
	Timeout      time.Duration
	// BaseURL overrides the API endpoint (tests, proxies)
	BaseURL string
}

// unconfigured stands in for a provider without an API key
type unconfigured struct {
	name string
}

func (u unconfigured) Name() string { return u.name }

func (u unconfigured) Complete(context.Context, []chat.Message) (string, error) {
	return "", ErrNotConfigured
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
