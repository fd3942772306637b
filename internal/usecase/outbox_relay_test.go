package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/finova/ledger/internal/domain"
	"github.com/finova/ledger/internal/usecase"
	"github.com/finova/ledger/internal/usecase/mocks"
)

type publisherFunc func(ctx context.Context, event *domain.OutboxEvent) error

func (f publisherFunc) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	return f(ctx, event)
}

func seedOutbox(t *testing.T, repo *mocks.MockOutboxRepository, ids ...string) {
	t.Helper()

	for _, id := range ids {
		err := repo.Create(context.Background(), nil, &domain.OutboxEvent{
			ID:        id,
			EventType: domain.EventTypeLedgerEventCreated,
			Payload:   map[string]any{"event_id": id},
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("seed outbox: %v", err)
		}
	}
}

func TestOutboxRelayDrainsAndMarksPublished(t *testing.T) {
	repo := mocks.NewMockOutboxRepository()
	seedOutbox(t, repo, "evt-1", "evt-2", "evt-3")

	var delivered []string
	publisher := publisherFunc(func(ctx context.Context, event *domain.OutboxEvent) error {
		delivered = append(delivered, event.ID)
		return nil
	})

	relay := usecase.NewOutboxRelay(repo, publisher, time.Second, 10, zerolog.Nop())

	n, err := relay.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	if n != 3 || len(delivered) != 3 {
		t.Fatalf("expected 3 published, got n=%d delivered=%v", n, delivered)
	}

	remaining, err := repo.GetUnpublished(context.Background(), 10)
	if err != nil {
		t.Fatalf("get unpublished: %v", err)
	}

	if len(remaining) != 0 {
		t.Fatalf("expected empty outbox, got %d rows", len(remaining))
	}
}

func TestOutboxRelayStopsBatchOnPublishFailure(t *testing.T) {
	repo := mocks.NewMockOutboxRepository()
	seedOutbox(t, repo, "evt-1", "evt-2", "evt-3")

	pubErr := errors.New("broker unavailable")
	publisher := publisherFunc(func(ctx context.Context, event *domain.OutboxEvent) error {
		if event.ID == "evt-2" {
			return pubErr
		}
		return nil
	})

	relay := usecase.NewOutboxRelay(repo, publisher, time.Second, 10, zerolog.Nop())

	n, err := relay.DrainOnce(context.Background())
	if !errors.Is(err, pubErr) {
		t.Fatalf("expected publish error, got %v", err)
	}

	if n != 1 {
		t.Fatalf("expected 1 published before failure, got %d", n)
	}

	// The failed row and everything after it stay queued for retry.
	remaining, err := repo.GetUnpublished(context.Background(), 10)
	if err != nil {
		t.Fatalf("get unpublished: %v", err)
	}

	if len(remaining) != 2 {
		t.Fatalf("expected 2 rows left, got %d", len(remaining))
	}
}

func TestOutboxRelayRespectsBatchSize(t *testing.T) {
	repo := mocks.NewMockOutboxRepository()
	seedOutbox(t, repo, "evt-1", "evt-2", "evt-3")

	publisher := publisherFunc(func(ctx context.Context, event *domain.OutboxEvent) error {
		return nil
	})

	relay := usecase.NewOutboxRelay(repo, publisher, time.Second, 2, zerolog.Nop())

	n, err := relay.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	if n != 2 {
		t.Fatalf("expected batch of 2, got %d", n)
	}
}
