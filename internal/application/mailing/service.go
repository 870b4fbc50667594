// Package mailing handles newsletter signups.
package mailing

import (
	"context"

	"github.com/tdhub/commandhub/internal/domain/mailing"
	"github.com/tdhub/commandhub/internal/domain/notification"
	"go.uber.org/zap"
)

// Notifier sends an email best effort
type Notifier interface {
	Send(ctx context.Context, email notification.Email)
}

// WelcomeRenderer renders the confirmation email
type WelcomeRenderer interface {
	MailingWelcome(name, email string) (notification.Email, error)
}

// SubscribeInput is a signup request
type SubscribeInput struct {
	Email  string
	Name   string
	Source string
}

// SubscribeResult reports the signup outcome
type SubscribeResult struct {
	Email             string `json:"email"`
	AlreadySubscribed bool   `json:"already_subscribed"`
}

// Service manages the mailing list
type Service struct {
	repo      mailing.Repository
	notifier  Notifier
	templates WelcomeRenderer
	logger    *zap.Logger
}

// NewService creates a mailing service. notifier and templates may be nil.
func NewService(repo mailing.Repository, notifier Notifier, templates WelcomeRenderer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, notifier: notifier, templates: templates, logger: logger}
}

// Subscribe adds the address. A repeated signup succeeds without another welcome email.
func (s *Service) Subscribe(ctx context.Context, in SubscribeInput) (*SubscribeResult, error) {
	sub, err := mailing.NewSubscriber(in.Email, in.Name, in.Source)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, sub)
	if err != nil {
		return nil, err
	}
	if !created {
		s.logger.Debug("Mailing list signup repeated", zap.String("email", sub.Email))
		return &SubscribeResult{Email: sub.Email, AlreadySubscribed: true}, nil
	}

	s.logger.Info("Mailing list signup",
		zap.String("email", sub.Email),
		zap.String("source", sub.Source))

	s.sendWelcome(ctx, sub)
	return &SubscribeResult{Email: sub.Email}, nil
}

// Count returns the number of subscribers
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *Service) sendWelcome(ctx context.Context, sub *mailing.Subscriber) {
	if s.notifier == nil || s.templates == nil {
		return
	}
	msg, err := s.templates.MailingWelcome(sub.Name, sub.Email)
	if err != nil {
		s.logger.Error("Failed to render welcome email", zap.Error(err))
		return
	}
	s.notifier.Send(ctx, msg)
}
