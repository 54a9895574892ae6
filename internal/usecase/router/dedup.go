package router

import (
	"context"
	"time"

	"github.com/tradewind/exchange/pkg/redis"
)

// Deduper tracks which order ids were already routed within the
// deduplication window.
type Deduper interface {
	// Seen reports whether orderID was already routed within the window.
	Seen(ctx context.Context, orderID string) (bool, error)
	// Claim marks orderID as routed for the rest of the window. The router
	// claims only after the lane write succeeded: a failed enqueue must
	// stay eligible for retry when the batch is redelivered.
	Claim(ctx context.Context, orderID string) error
}

// RedisDeduper implements the dedup window on Redis: SETNX with a TTL claims
// the order id exactly once per window, regardless of which process routes it.
type RedisDeduper struct {
	client redis.Client
	window time.Duration
	prefix string
}

// NewRedisDeduper creates a deduper over the given Redis client.
func NewRedisDeduper(client redis.Client, window time.Duration, prefix string) *RedisDeduper {
	return &RedisDeduper{
		client: client,
		window: window,
		prefix: prefix,
	}
}

// Seen reports whether the order id holds a claim for this window.
func (d *RedisDeduper) Seen(ctx context.Context, orderID string) (bool, error) {
	val, err := d.client.Get(ctx, d.prefix+orderID)
	if err != nil {
		return false, err
	}
	return val != "", nil
}

// Claim takes the window claim for the order id. Losing the SETNX race is
// not an error: some other routing pass got there first.
func (d *RedisDeduper) Claim(ctx context.Context, orderID string) error {
	_, err := d.client.SetNX(ctx, d.prefix+orderID, 1, d.window)
	return err
}
