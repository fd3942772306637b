package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/finova/ledger/internal/domain"
)

// PublishChannel is the pub/sub channel outbox events are broadcast on.
const PublishChannel = "ledger:events"

// Publisher broadcasts outbox events over Redis pub/sub.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher creates a new Publisher.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{
		client:  client,
		channel: PublishChannel,
	}
}

// Publish sends the event to the channel as JSON.
func (p *Publisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, p.channel, payload).Err()
}
