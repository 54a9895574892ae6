package notifier

import (
	"context"
	"encoding/json"

	"github.com/tradewind/exchange/pkg/errors"
	"github.com/tradewind/exchange/pkg/redis"
)

// MarketUpdate is the notification payload broadcast to downstream
// subscribers (live order book viewers and the like) after a matching pass.
type MarketUpdate struct {
	Type    string `json:"type"`
	Market  string `json:"market"`
	OrderID string `json:"orderId"`
}

// Publisher broadcasts market-update notifications. Delivery is
// fire-and-forget; the transport's own semantics are the only guarantee.
type Publisher interface {
	PublishOrderUpdate(ctx context.Context, market, orderID string) error
}

// RedisPublisher implements Publisher on a Redis pub/sub channel.
type RedisPublisher struct {
	client  redis.Client
	channel string
}

// Ensure RedisPublisher implements Publisher.
var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher on the given channel.
func NewRedisPublisher(client redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
	}
}

// PublishOrderUpdate broadcasts an orderUpdate notification for the market.
func (p *RedisPublisher) PublishOrderUpdate(ctx context.Context, market, orderID string) error {
	payload, err := json.Marshal(MarketUpdate{
		Type:    "orderUpdate",
		Market:  market,
		OrderID: orderID,
	})
	if err != nil {
		return errors.NewTracer("failed to marshal market update").Wrap(err)
	}

	if _, err := p.client.Publish(ctx, p.channel, payload); err != nil {
		return errors.NewTracer("failed to publish market update").Wrap(err)
	}

	return nil
}
