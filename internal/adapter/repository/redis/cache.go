package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finova/ledger/internal/infrastructure/metrics"
)

// Cache implements usecase.Cache using Redis.
type Cache struct {
	client  *redis.Client
	prefix  string
	metrics *metrics.Metrics
}

// NewCache creates a new Cache. metrics may be nil.
func NewCache(client *redis.Client, m *metrics.Metrics) *Cache {
	return &Cache{
		client:  client,
		prefix:  "cache:",
		metrics: m,
	}
}

// Get retrieves a value by key.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	c.count("get", err)

	return val, err
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+key, value, ttl).Err()
	c.count("set", err)

	return err
}

// SetNX sets a value only if it doesn't exist.
func (c *Cache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.prefix+key, value, ttl).Result()
	c.count("setnx", err)

	return ok, err
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.client.Del(ctx, c.prefix+key).Err()
	c.count("del", err)

	return err
}

// count records the operation; a cache miss is not an error.
func (c *Cache) count(op string, err error) {
	if c.metrics == nil {
		return
	}

	c.metrics.RedisOperations.WithLabelValues(op).Inc()

	if err != nil && !errors.Is(err, redis.Nil) {
		c.metrics.RedisErrors.WithLabelValues(op).Inc()
	}
}
