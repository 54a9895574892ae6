package lane

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tradewind/exchange/internal/domain/market"
	marketv1 "github.com/tradewind/exchange/internal/domain/market/v1"
	orderv1 "github.com/tradewind/exchange/internal/domain/order/v1"
	"github.com/tradewind/exchange/internal/usecase/matcher"
	"github.com/tradewind/exchange/internal/usecase/notifier"
	"github.com/tradewind/exchange/pkg/errors"
	"github.com/tradewind/exchange/pkg/logger"
	"github.com/tradewind/exchange/pkg/util"
)

// Reader consumes one lane's queue.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MatchEngine runs one matching pass for a taker order.
type MatchEngine interface {
	Match(ctx context.Context, taker *orderv1.Order) (*matcher.Result, error)
}

// Consumer is the type matcher bound to one lane: a single sequential loop
// that dequeues order messages, runs the match engine, and broadcasts a
// market update. Sequential consumption plus the market-keyed lock is what
// gives the engine a consistent view of a market's book without store-level
// locking.
type Consumer struct {
	name     string
	reader   Reader
	engine   MatchEngine
	notifier notifier.Publisher
	locks    *util.KeyLock
	metadata market.Cache
	logger   logger.Interface
}

// NewConsumer creates a lane consumer. All lane consumers in the process must
// share the same KeyLock so markets reachable through several lanes stay
// serialized.
func NewConsumer(
	name string,
	reader Reader,
	engine MatchEngine,
	pub notifier.Publisher,
	locks *util.KeyLock,
	metadata market.Cache,
	log logger.Interface,
) *Consumer {
	return &Consumer{
		name:     name,
		reader:   reader,
		engine:   engine,
		notifier: pub,
		locks:    locks,
		metadata: metadata,
		logger:   log,
	}
}

// Start runs the consumer loop until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.InfoContext(ctx, "starting lane consumer", logger.Field{
		Key:   "lane",
		Value: c.name,
	})

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "lane consumer shutting down", logger.Field{
				Key:   "lane",
				Value: c.name,
			})
			return
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				c.logger.ErrorContext(ctx, err, logger.Field{
					Key:   "action",
					Value: "fetch_lane_message",
				}, logger.Field{
					Key:   "lane",
					Value: c.name,
				})
				time.Sleep(100 * time.Millisecond)
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop closes the lane reader.
func (c *Consumer) Stop() error {
	return c.reader.Close()
}

// handleMessage runs one matching pass. The offset is committed only after
// the pass ran to completion (a no-fill outcome is still completion); a
// failed pass leaves the message uncommitted so the queue redelivers it.
func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) {
	ctx = util.WithRequestID(ctx, "")

	var queueMsg orderv1.QueueMessage
	if err := json.Unmarshal(msg.Value, &queueMsg); err != nil {
		// A poison message would redeliver forever; drop it.
		c.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "unmarshal_queue_message",
		}, logger.Field{
			Key:   "lane",
			Value: c.name,
		})
		c.commit(ctx, msg)
		return
	}

	if queueMsg.Order == nil {
		c.logger.WarnContext(ctx, "queue message without order snapshot", logger.Field{
			Key:   "order_id",
			Value: queueMsg.OrderID,
		})
		c.commit(ctx, msg)
		return
	}

	c.validateAgainstMetadata(ctx, queueMsg.Order)

	c.locks.Lock(queueMsg.Market)
	result, err := c.engine.Match(ctx, queueMsg.Order)
	c.locks.Unlock(queueMsg.Market)

	if err != nil {
		c.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "match_pass",
		}, logger.Field{
			Key:   "lane",
			Value: c.name,
		}, logger.Field{
			Key:   "market",
			Value: queueMsg.Market,
		}, logger.Field{
			Key:   "order_id",
			Value: queueMsg.OrderID,
		})
		// No commit: the queue's at-least-once policy redelivers the message.
		time.Sleep(100 * time.Millisecond)
		return
	}

	// Publish after a completed pass, whether or not it produced fills.
	// A publish failure must not re-run matching: that would double-fill.
	if err := c.notifier.PublishOrderUpdate(ctx, queueMsg.Market, queueMsg.OrderID); err != nil {
		c.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "publish_market_update",
		}, logger.Field{
			Key:   "market",
			Value: queueMsg.Market,
		})
	}

	c.logger.DebugContext(ctx, "lane message processed", logger.Field{
		Key:   "lane",
		Value: c.name,
	}, logger.Field{
		Key:   "order_id",
		Value: queueMsg.OrderID,
	}, logger.Field{
		Key:   "trades",
		Value: len(result.Trades),
	})

	c.commit(ctx, msg)
}

// validateAgainstMetadata checks the order against its market's trading
// parameters. Findings are logged, never enforced: matching does not depend
// on the metadata service being reachable.
func (c *Consumer) validateAgainstMetadata(ctx context.Context, o *orderv1.Order) {
	meta, err := c.metadata.Lookup(ctx, o.Market, modeForType(o.Type))
	if err != nil {
		c.logger.WarnContext(ctx, "metadata lookup failed", logger.Field{
			Key:   "market",
			Value: o.Market,
		}, logger.Field{
			Key:   "error",
			Value: err.Error(),
		})
		return
	}
	if meta == nil {
		c.logger.WarnContext(ctx, "order for unknown market", logger.Field{
			Key:   "code",
			Value: string(errors.ErrMarketNotFound),
		}, logger.Field{
			Key:   "market",
			Value: o.Market,
		}, logger.Field{
			Key:   "order_id",
			Value: o.OrderID,
		})
		return
	}

	if meta.LotSize.IsPositive() && !o.Qty.Mod(meta.LotSize).IsZero() {
		c.logger.WarnContext(ctx, "order qty off lot size", logger.Field{
			Key:   "order_id",
			Value: o.OrderID,
		}, logger.Field{
			Key:   "qty",
			Value: o.Qty.String(),
		}, logger.Field{
			Key:   "lot_size",
			Value: meta.LotSize.String(),
		})
	}
	if o.Price != nil && meta.TickSize.IsPositive() && !o.Price.Mod(meta.TickSize).IsZero() {
		c.logger.WarnContext(ctx, "order price off tick size", logger.Field{
			Key:   "order_id",
			Value: o.OrderID,
		}, logger.Field{
			Key:   "price",
			Value: o.Price.String(),
		}, logger.Field{
			Key:   "tick_size",
			Value: meta.TickSize.String(),
		})
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "commit_lane_message",
		}, logger.Field{
			Key:   "lane",
			Value: c.name,
		})
	}
}

// modeForType maps an order type to the market mode its metadata lives under.
func modeForType(t orderv1.OrderType) marketv1.Mode {
	switch t {
	case orderv1.OrderTypeFuture:
		return marketv1.ModeFutures
	case orderv1.OrderTypePerp:
		return marketv1.ModePerp
	case orderv1.OrderTypeOption:
		return marketv1.ModeOption
	default:
		return marketv1.ModeSpot
	}
}
