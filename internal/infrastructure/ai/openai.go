package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tdhub/commandhub/internal/domain/chat"
)

// GPTProvider answers through the OpenAI Chat Completions API
type GPTProvider struct {
	client *openai.Client
	opts   Options
}

// NewGPTProvider returns a GPT provider, or a provider that always fails
// with ErrNotConfigured when no API key is set
func NewGPTProvider(opts Options) chat.Provider {
	if opts.APIKey == "" {
		return unconfigured{name: "GPT"}
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &GPTProvider{client: openai.NewClientWithConfig(cfg), opts: opts}
}

// Name implements chat.Provider
func (p *GPTProvider) Name() string { return "GPT" }

// Complete implements chat.Provider
func (p *GPTProvider) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	ctx, cancel := withTimeout(ctx, p.opts.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:     p.opts.Model,
		MaxTokens: p.opts.MaxTokens,
		Messages:  make([]openai.ChatCompletionMessage, 0, len(messages)+1),
	}
	if p.opts.SystemPrompt != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.opts.SystemPrompt,
		})
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == chat.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}
