package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultRelayInterval  = 5 * time.Second
	defaultRelayBatchSize = 100
)

// OutboxRelay drains committed outbox rows to the event publisher.
// Rows are only marked published after a successful publish, so
// delivery is at-least-once; consumers must tolerate duplicates.
type OutboxRelay struct {
	outboxRepo OutboxRepository
	publisher  EventPublisher
	interval   time.Duration
	batchSize  int
	logger     zerolog.Logger
}

// NewOutboxRelay creates a new OutboxRelay.
func NewOutboxRelay(outboxRepo OutboxRepository, publisher EventPublisher, interval time.Duration, batchSize int, logger zerolog.Logger) *OutboxRelay {
	if interval <= 0 {
		interval = defaultRelayInterval
	}

	if batchSize <= 0 {
		batchSize = defaultRelayBatchSize
	}

	return &OutboxRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Run drains the outbox on a fixed interval until ctx is done.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.DrainOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("outbox drain failed")
			}
		}
	}
}

// DrainOnce publishes one batch of unpublished events and reports how
// many were delivered. A publish failure stops the batch; the failed
// row stays unpublished and is retried on the next pass.
func (r *OutboxRelay) DrainOnce(ctx context.Context) (int, error) {
	events, err := r.outboxRepo.GetUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	published := 0

	for _, event := range events {
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.logger.Warn().
				Err(err).
				Str("event_id", event.ID).
				Str("event_type", event.EventType).
				Msg("failed to publish outbox event")

			return published, err
		}

		if err := r.outboxRepo.MarkPublished(ctx, event.ID, time.Now().UTC()); err != nil {
			return published, err
		}

		published++
	}

	return published, nil
}
