package email

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/domain/notification"
	"go.uber.org/zap"
)

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	Retention    time.Duration
	SendTimeout  time.Duration
	// ClaimTimeout is how long an entry may stay in processing before
	// another poll takes it back
	ClaimTimeout time.Duration
}

const writeBackTimeout = 5 * time.Second

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:    50,
		PollInterval: 5 * time.Second,
		Retention:    7 * 24 * time.Hour,
		SendTimeout:  15 * time.Second,
		ClaimTimeout: 15 * time.Minute,
	}
}

// DeliveryObserver is told the outcome of every delivery attempt
type DeliveryObserver interface {
	ObserveEmail(kind string, outcome string)
}

// OutboxProcessor delivers queued email in the background
type OutboxProcessor struct {
	repo     notification.OutboxRepository
	mailer   notification.Mailer
	config   OutboxProcessorConfig
	observer DeliveryObserver
	logger   *zap.Logger
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor. observer may be nil.
func NewOutboxProcessor(
	repo notification.OutboxRepository,
	mailer notification.Mailer,
	config OutboxProcessorConfig,
	observer DeliveryObserver,
	logger *zap.Logger,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultOutboxProcessorConfig().BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultOutboxProcessorConfig().PollInterval
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = DefaultOutboxProcessorConfig().SendTimeout
	}
	if config.ClaimTimeout <= 0 {
		config.ClaimTimeout = DefaultOutboxProcessorConfig().ClaimTimeout
	}
	return &OutboxProcessor{
		repo:     repo,
		mailer:   mailer,
		config:   config,
		observer: observer,
		logger:   logger.Named("outbox"),
		now:      time.Now,
	}
}

// Start runs the poll loop until Stop or ctx cancellation
func (p *OutboxProcessor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(ctx)

	p.logger.Info("Email outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)
}

// Stop cancels the loop and waits for the in-flight batch, or for ctx
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("Email outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch delivers one batch of pending entries and one of due retries.
// It returns the number of entries attempted.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) int {
	attempted := 0

	released, err := p.repo.ReleaseStale(ctx, p.now().UTC().Add(-p.config.ClaimTimeout))
	if err != nil {
		p.logger.Error("Failed to release stale emails", zap.Error(err))
	} else if released > 0 {
		p.logger.Warn("Released stale emails", zap.Int64("count", released))
	}

	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("Failed to load pending emails", zap.Error(err))
		return 0
	}
	attempted += p.deliverAll(ctx, pending)

	retryable, err := p.repo.FindRetryable(ctx, p.now().UTC(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("Failed to load retryable emails", zap.Error(err))
		return attempted
	}
	return attempted + p.deliverAll(ctx, retryable)
}

func (p *OutboxProcessor) deliverAll(ctx context.Context, entries []*notification.OutboxEntry) int {
	if len(entries) == 0 {
		return 0
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("Failed to claim emails", zap.Error(err))
		return 0
	}
	for _, entry := range claimed {
		p.deliver(ctx, entry)
	}
	return len(claimed)
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *notification.OutboxEntry) {
	sendCtx, cancel := context.WithTimeout(ctx, p.config.SendTimeout)
	err := p.mailer.Send(sendCtx, entry.Email())
	cancel()

	fields := []zap.Field{
		zap.String("outbox_id", entry.ID.String()),
		zap.String("kind", string(entry.Kind)),
	}

	if err != nil {
		entry.MarkFailed(err.Error(), p.now().UTC())
		outcome := "failed"
		if entry.IsDead() {
			outcome = "dead"
			p.logger.Warn("Email moved to dead letter",
				append(fields, zap.Int("retry_count", entry.RetryCount), zap.String("last_error", entry.LastError))...)
		} else {
			p.logger.Warn("Email delivery failed", append(fields, zap.Error(err))...)
		}
		p.observe(entry.Kind, outcome)
	} else {
		entry.MarkSent(p.now().UTC())
		p.observe(entry.Kind, "sent")
		p.logger.Debug("Email delivered", fields...)
	}

	// The outcome is recorded even when the loop is shutting down
	writeCtx, cancelWrite := context.WithTimeout(context.WithoutCancel(ctx), writeBackTimeout)
	defer cancelWrite()
	if updateErr := p.repo.Update(writeCtx, entry); updateErr != nil {
		p.logger.Error("Failed to update outbox entry", append(fields, zap.Error(updateErr))...)
	}
}

func (p *OutboxProcessor) observe(kind notification.Kind, outcome string) {
	if p.observer != nil {
		p.observer.ObserveEmail(string(kind), outcome)
	}
}

// Cleanup deletes sent entries older than the retention. It is registered
// as a scheduler job.
func (p *OutboxProcessor) Cleanup(ctx context.Context) error {
	if p.config.Retention <= 0 {
		return nil
	}
	cutoff := p.now().UTC().Add(-p.config.Retention)
	deleted, err := p.repo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		p.logger.Info("Purged sent emails", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
	return nil
}
