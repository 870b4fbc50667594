package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tdhub/commandhub/internal/domain/chat"
)

// ClaudeProvider answers through the Anthropic Messages API
type ClaudeProvider struct {
	client anthropic.Client
	opts   Options
}

// NewClaudeProvider returns a Claude provider, or a provider that always
// fails with ErrNotConfigured when no API key is set
func NewClaudeProvider(opts Options) chat.Provider {
	if opts.APIKey == "" {
		return unconfigured{name: "Claude"}
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &ClaudeProvider{client: anthropic.NewClient(reqOpts...), opts: opts}
}

// Name implements chat.Provider
func (p *ClaudeProvider) Name() string { return "Claude" }

// Complete implements chat.Provider
func (p *ClaudeProvider) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	ctx, cancel := withTimeout(ctx, p.opts.Timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.opts.Model),
		MaxTokens: int64(p.opts.MaxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(messages)),
	}
	if p.opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.opts.SystemPrompt}}
	}
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == chat.RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyReply
	}
	return sb.String(), nil
}
