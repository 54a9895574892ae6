package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	orderv1 "github.com/tradewind/exchange/internal/domain/order/v1"
	"github.com/tradewind/exchange/pkg/errors"
	"github.com/tradewind/exchange/pkg/logger"
	"github.com/tradewind/exchange/pkg/util"
	"go.uber.org/multierr"
)

// ChangeStreamReader consumes the order store's change stream.
type ChangeStreamReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// LaneWriter publishes order messages onto one lane. *kafka.Writer satisfies
// this; the writer must hash the message key so one market always lands on
// one partition.
type LaneWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Lane binds a lane name to its writer.
type Lane struct {
	Name   string
	Writer LaneWriter
}

// Options holds tuning knobs for the router.
type Options struct {
	// BatchSize caps how many change events are routed in one cycle.
	BatchSize int
	// FlushInterval caps how long a partial batch waits for more events.
	FlushInterval time.Duration
}

// DefaultOptions returns the default router options.
func DefaultOptions() Options {
	return Options{
		BatchSize:     64,
		FlushInterval: 100 * time.Millisecond,
	}
}

// Router watches the order store's change stream, classifies each newly
// inserted order by type, and publishes it onto the matching lane with
// ordering key = market and deduplication key = order id. It never mutates
// the order store.
type Router struct {
	reader ChangeStreamReader
	lanes  map[orderv1.OrderType]Lane
	dedup  Deduper
	logger logger.Interface

	batchSize     int
	flushInterval time.Duration
}

// NewRouter creates a new order insert router. The lane table is static
// configuration: order types missing from it are dropped with a logged
// error, never retried.
func NewRouter(
	reader ChangeStreamReader,
	lanes map[orderv1.OrderType]Lane,
	dedup Deduper,
	log logger.Interface,
	opts Options,
) (*Router, error) {
	if len(lanes) == 0 {
		return nil, fmt.Errorf("lane table cannot be empty")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultOptions().FlushInterval
	}

	return &Router{
		reader:        reader,
		lanes:         lanes,
		dedup:         dedup,
		logger:        log,
		batchSize:     opts.BatchSize,
		flushInterval: opts.FlushInterval,
	}, nil
}

// Start runs the routing loop until ctx is cancelled.
func (r *Router) Start(ctx context.Context) {
	r.logger.InfoContext(ctx, "starting order insert router", logger.Field{
		Key:   "action",
		Value: "router_start",
	})

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "order insert router shutting down", logger.Field{
				Key:   "action",
				Value: "router_stop",
			})
			return
		default:
			batch, err := r.readBatch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				r.logger.ErrorContext(ctx, err, logger.Field{
					Key:   "action",
					Value: "read_change_event",
				})
				time.Sleep(100 * time.Millisecond)
				continue
			}
			if len(batch) == 0 {
				continue
			}

			if err := r.RouteBatch(ctx, batch); err != nil {
				// At least one enqueue failed: skip the offset commit so the
				// batch is redelivered. The dedup window keeps the already
				// enqueued siblings from being enqueued twice.
				r.logger.ErrorContext(ctx, err, logger.Field{
					Key:   "action",
					Value: "route_batch",
				})
				continue
			}

			if err := r.reader.CommitMessages(ctx, batch...); err != nil {
				r.logger.ErrorContext(ctx, err, logger.Field{
					Key:   "action",
					Value: "commit_change_events",
				})
			}
		}
	}
}

// Stop closes the change stream reader.
func (r *Router) Stop() error {
	return r.reader.Close()
}

// readBatch fetches up to batchSize messages, waiting at most flushInterval
// after the first one arrives.
func (r *Router) readBatch(ctx context.Context) ([]kafka.Message, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}

	batch := []kafka.Message{first}

	deadline, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	for len(batch) < r.batchSize {
		msg, err := r.reader.FetchMessage(deadline)
		if err != nil {
			// Deadline exhausted: route what we have.
			break
		}
		batch = append(batch, msg)
	}

	return batch, nil
}

// RouteBatch classifies and enqueues one batch of change events. Lane writes
// are issued concurrently and independently; the returned error aggregates
// every lane that failed without failing the siblings.
func (r *Router) RouteBatch(ctx context.Context, msgs []kafka.Message) error {
	ctx = util.WithRequestID(ctx, "")

	grouped := make(map[orderv1.OrderType]laneBatch)

	for _, msg := range msgs {
		queueMsg, orderType, ok := r.classify(ctx, msg)
		if !ok {
			continue
		}

		payload, err := json.Marshal(queueMsg)
		if err != nil {
			r.logger.ErrorContext(ctx, err, logger.Field{
				Key:   "action",
				Value: "marshal_queue_message",
			}, logger.Field{
				Key:   "order_id",
				Value: queueMsg.OrderID,
			})
			continue
		}

		batch := grouped[orderType]
		batch.msgs = append(batch.msgs, kafka.Message{
			Key:   []byte(queueMsg.Market),
			Value: payload,
		})
		batch.orderIDs = append(batch.orderIDs, queueMsg.OrderID)
		grouped[orderType] = batch
	}

	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)

	for orderType, batch := range grouped {
		lane := r.lanes[orderType]

		wg.Add(1)
		go func(lane Lane, batch laneBatch) {
			defer wg.Done()

			if err := lane.Writer.WriteMessages(ctx, batch.msgs...); err != nil {
				r.logWriteErrors(ctx, lane, batch.msgs, err)

				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("lane %s: %w", lane.Name, err))
				mu.Unlock()
				return
			}

			r.claimRouted(ctx, lane, batch.orderIDs)
		}(lane, batch)
	}

	wg.Wait()
	return errs
}

// laneBatch is one lane's share of a routing cycle: the messages to enqueue
// and, position for position, the order ids to claim once the write lands.
type laneBatch struct {
	msgs     []kafka.Message
	orderIDs []string
}

// claimRouted takes the dedup window claim for every order id that just
// landed on its lane. Claiming only after a successful write means a failed
// enqueue is retried on redelivery instead of being swallowed as a
// duplicate; a failed claim merely re-opens the window for one order, and
// the match engine tolerates the resulting duplicate pass.
func (r *Router) claimRouted(ctx context.Context, lane Lane, orderIDs []string) {
	for _, orderID := range orderIDs {
		if err := r.dedup.Claim(ctx, orderID); err != nil {
			r.logger.WarnContext(ctx, "dedup claim failed", logger.Field{
				Key:   "lane",
				Value: lane.Name,
			}, logger.Field{
				Key:   "order_id",
				Value: orderID,
			}, logger.Field{
				Key:   "error",
				Value: err.Error(),
			})
		}
	}
}

// classify parses one change event and resolves its lane. It returns ok=false
// for anything that must be dropped: non-insert events, unparseable payloads,
// unroutable order types, and duplicates within the dedup window.
func (r *Router) classify(ctx context.Context, msg kafka.Message) (*orderv1.QueueMessage, orderv1.OrderType, bool) {
	var event orderv1.ChangeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		r.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "unmarshal_change_event",
		})
		return nil, "", false
	}

	if event.EventType != orderv1.EventTypeInsert || event.Order == nil {
		return nil, "", false
	}

	o := event.Order

	if _, ok := r.lanes[o.Type]; !ok {
		r.logger.ErrorContext(ctx, errors.NewErrorDetailsWithObject(
			"order type has no lane mapping",
			string(errors.ErrUnroutableOrderType),
			"orderType",
			o.Type,
		), logger.Field{
			Key:   "order_id",
			Value: o.OrderID,
		}, logger.Field{
			Key:   "market",
			Value: o.Market,
		})
		return nil, "", false
	}

	seen, err := r.dedup.Seen(ctx, o.OrderID)
	if err != nil {
		// Dedup is best-effort: when the window is unreachable, routing a
		// possible duplicate beats dropping a real order.
		r.logger.WarnContext(ctx, "dedup window unavailable", logger.Field{
			Key:   "order_id",
			Value: o.OrderID,
		}, logger.Field{
			Key:   "error",
			Value: err.Error(),
		})
	} else if seen {
		r.logger.DebugContext(ctx, "duplicate insert event dropped", logger.Field{
			Key:   "code",
			Value: string(errors.ErrDuplicateOrderEvent),
		}, logger.Field{
			Key:   "order_id",
			Value: o.OrderID,
		}, logger.Field{
			Key:   "market",
			Value: o.Market,
		})
		return nil, "", false
	}

	return &orderv1.QueueMessage{
		OrderID: o.OrderID,
		Market:  o.Market,
		Order:   o,
	}, o.Type, true
}

// logWriteErrors unpacks kafka-go per-message write errors so one failed
// event is visible on its own, not only as a lane-level failure.
func (r *Router) logWriteErrors(ctx context.Context, lane Lane, msgs []kafka.Message, err error) {
	writeErrs, ok := err.(kafka.WriteErrors)
	if !ok {
		r.logger.ErrorContext(ctx, err, logger.Field{
			Key:   "action",
			Value: "enqueue_lane_batch",
		}, logger.Field{
			Key:   "code",
			Value: string(errors.ErrEnqueueFailed),
		}, logger.Field{
			Key:   "lane",
			Value: lane.Name,
		})
		return
	}

	for i, writeErr := range writeErrs {
		if writeErr == nil {
			continue
		}
		r.logger.ErrorContext(ctx, writeErr, logger.Field{
			Key:   "action",
			Value: "enqueue_order_message",
		}, logger.Field{
			Key:   "code",
			Value: string(errors.ErrEnqueueFailed),
		}, logger.Field{
			Key:   "lane",
			Value: lane.Name,
		}, logger.Field{
			Key:   "market",
			Value: string(msgs[i].Key),
		})
	}
}
