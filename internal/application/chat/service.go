// Package chat forwards conversations to the configured AI providers.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/tdhub/commandhub/internal/domain/chat"
	"github.com/tdhub/commandhub/internal/domain/shared"
	"go.uber.org/zap"
)

// FallbackMessage is shown in place of a reply when a provider fails
const FallbackMessage = "The AI assistant is temporarily unavailable. Please try again in a moment."

// ErrUnavailable is returned when no provider produced a reply
var ErrUnavailable = shared.NewDomainError("AI_UNAVAILABLE", FallbackMessage)

const compareSeparator = "\n\n---\n\n"

// Observer receives per-provider call outcomes
type Observer interface {
	ObserveAICall(provider, outcome string, duration time.Duration)
}

// Request is a chat request
type Request struct {
	Messages []chat.Message
	Model    string
}

// Response is the normalized reply
type Response struct {
	Model     chat.Model `json:"model"`
	Content   string     `json:"content"`
	Providers []string   `json:"providers"`
}

// Service routes a conversation to one or both providers
type Service struct {
	claude   chat.Provider
	gpt      chat.Provider
	observer Observer
	logger   *zap.Logger
}

// NewService creates a chat service. observer may be nil.
func NewService(claude, gpt chat.Provider, observer Observer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		claude:   claude,
		gpt:      gpt,
		observer: observer,
		logger:   logger,
	}
}

// Complete validates the conversation and returns the reply for the selected model.
// Compare mode calls Claude then GPT and succeeds if at least one answers.
func (s *Service) Complete(ctx context.Context, req Request) (*Response, error) {
	model, err := chat.ParseModel(req.Model)
	if err != nil {
		return nil, err
	}
	if err := chat.ValidateConversation(req.Messages); err != nil {
		return nil, err
	}

	switch model {
	case chat.ModelGPT:
		return s.single(ctx, model, s.gpt, req.Messages)
	case chat.ModelCompare:
		return s.compare(ctx, req.Messages)
	default:
		return s.single(ctx, model, s.claude, req.Messages)
	}
}

func (s *Service) single(ctx context.Context, model chat.Model, p chat.Provider, messages []chat.Message) (*Response, error) {
	text, err := s.call(ctx, p, messages)
	if err != nil {
		return nil, shared.NewDomainErrorWithCause(ErrUnavailable.Code, ErrUnavailable.Message, err)
	}
	return &Response{
		Model:     model,
		Content:   text,
		Providers: []string{p.Name()},
	}, nil
}

func (s *Service) compare(ctx context.Context, messages []chat.Message) (*Response, error) {
	var (
		sections  []string
		answered  []string
		lastError error
	)
	for _, p := range []chat.Provider{s.claude, s.gpt} {
		text, err := s.call(ctx, p, messages)
		if err != nil {
			lastError = err
			text = FallbackMessage
		} else {
			answered = append(answered, p.Name())
		}
		sections = append(sections, "**"+p.Name()+":**\n"+text)
	}

	if len(answered) == 0 {
		return nil, shared.NewDomainErrorWithCause(ErrUnavailable.Code, ErrUnavailable.Message, lastError)
	}
	return &Response{
		Model:     chat.ModelCompare,
		Content:   strings.Join(sections, compareSeparator),
		Providers: answered,
	}, nil
}

func (s *Service) call(ctx context.Context, p chat.Provider, messages []chat.Message) (string, error) {
	start := time.Now()
	text, err := p.Complete(ctx, messages)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "error"
		s.logger.Warn("AI provider call failed",
			zap.String("provider", p.Name()),
			zap.Duration("duration", elapsed),
			zap.Error(err))
	} else {
		s.logger.Debug("AI provider replied",
			zap.String("provider", p.Name()),
			zap.Duration("duration", elapsed),
			zap.Int("chars", len(text)))
	}
	if s.observer != nil {
		s.observer.ObserveAICall(p.Name(), outcome, elapsed)
	}
	return text, err
}
