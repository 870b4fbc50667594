// Package chat defines the provider-neutral conversation types used by the AI proxy.
package chat

import (
	"context"
	"strings"

	"github.com/tdhub/commandhub/internal/domain/shared"
)

// Role is the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Model selects which provider answers
type Model string

const (
	ModelClaude  Model = "claude"
	ModelGPT     Model = "gpt"
	ModelCompare Model = "compare"
)

// ParseModel maps a request value to a Model. Empty selects Claude.
func ParseModel(s string) (Model, error) {
	switch Model(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModelClaude:
		return ModelClaude, nil
	case ModelGPT:
		return ModelGPT, nil
	case ModelCompare:
		return ModelCompare, nil
	}
	return "", shared.NewDomainError("INVALID_MODEL", "Model must be one of claude, gpt, compare")
}

// Message is one turn of the conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// MaxMessages bounds the conversation forwarded upstream
const MaxMessages = 100

// ValidateConversation checks roles, emptiness and that the user spoke last
func ValidateConversation(messages []Message) error {
	if len(messages) == 0 {
		return shared.NewDomainError("INVALID_MESSAGES", "At least one message is required")
	}
	if len(messages) > MaxMessages {
		return shared.NewDomainError("INVALID_MESSAGES", "Too many messages")
	}
	for _, m := range messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return shared.NewDomainError("INVALID_MESSAGES", "Message role must be user or assistant")
		}
		if strings.TrimSpace(m.Content) == "" {
			return shared.NewDomainError("INVALID_MESSAGES", "Message content cannot be empty")
		}
	}
	if messages[len(messages)-1].Role != RoleUser {
		return shared.NewDomainError("INVALID_MESSAGES", "The last message must come from the user")
	}
	return nil
}

// Provider is an upstream model API
type Provider interface {
	// Name is the label shown to users, e.g. "Claude"
	Name() string
	// Complete returns the assistant reply for the conversation
	Complete(ctx context.Context, messages []Message) (string, error)
}
