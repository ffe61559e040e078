package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// CharityCounter implements ports.CharityCounter on a Redis counter. The
// charitable share of every spend is accumulated here for the charity
// service to drain; the engine only ever adds to it.
type CharityCounter struct {
	client *goredis.Client
	key    string
}

// NewCharityCounter creates a new Redis-backed charity counter.
func NewCharityCounter(client *goredis.Client) *CharityCounter {
	return &CharityCounter{
		client: client,
		key:    "charity:pool",
	}
}

// Add accumulates amount (minor units) into the charity pool.
func (c *CharityCounter) Add(ctx context.Context, amount int64) error {
	if err := c.client.IncrBy(ctx, c.key, amount).Err(); err != nil {
		return fmt.Errorf("redis charity incrby: %w", err)
	}
	return nil
}

// Total returns the accumulated pool in minor units.
func (c *CharityCounter) Total(ctx context.Context) (int64, error) {
	val, err := c.client.Get(ctx, c.key).Int64()
	if err != nil {
		if err == goredis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("redis charity get: %w", err)
	}
	return val, nil
}
