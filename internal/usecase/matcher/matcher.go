package matcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradewind/exchange/internal/domain/order"
	orderv1 "github.com/tradewind/exchange/internal/domain/order/v1"
	"github.com/tradewind/exchange/internal/domain/stats"
	statsv1 "github.com/tradewind/exchange/internal/domain/stats/v1"
	"github.com/tradewind/exchange/internal/domain/trade"
	tradev1 "github.com/tradewind/exchange/internal/domain/trade/v1"
	pkgerrors "github.com/tradewind/exchange/pkg/errors"
	"github.com/tradewind/exchange/pkg/logger"
)

// FeeBps is the fee rate in basis points charged to each side of a fill
// independently (not split).
const FeeBps = 50

// writesPerFill is the number of store writes one fill contributes: maker
// update, taker update, trade insert, intraday upsert, lifetime upsert.
// A fill's writes are never split across commit chunks.
const writesPerFill = 5

var (
	feeBps   = decimal.NewFromInt(FeeBps)
	bpsScale = decimal.NewFromInt(10_000)
)

// Transactor runs a function inside one atomic all-or-nothing commit.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Fill is one planned trade between the taker and a resting maker.
type Fill struct {
	Maker    *orderv1.Order
	Qty      decimal.Decimal
	Price    decimal.Decimal // maker's resting price
	TakerFee decimal.Decimal
	MakerFee decimal.Decimal
}

// Result summarizes a completed matching pass.
type Result struct {
	Trades    []*tradev1.Trade
	FilledQty decimal.Decimal
}

// Engine is the matching algorithm: it loads the opposite-side book, walks it
// in price-time priority, and settles the resulting fills as atomic
// transactions against the order store.
type Engine struct {
	orders order.Repository
	trades trade.Repository
	stats  stats.Repository
	tx     Transactor
	logger logger.Interface

	maxWritesPerCommit int
	now                func() time.Time
}

// Options holds tuning knobs for the engine.
type Options struct {
	// MaxWritesPerCommit caps how many store writes one transaction may
	// carry. Fills beyond the cap are settled in further atomic chunks,
	// never dropped.
	MaxWritesPerCommit int

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		MaxWritesPerCommit: 100,
		Now:                time.Now,
	}
}

// NewEngine creates a new matching engine.
func NewEngine(
	orders order.Repository,
	trades trade.Repository,
	stats stats.Repository,
	tx Transactor,
	log logger.Interface,
	opts Options,
) *Engine {
	if opts.MaxWritesPerCommit <= 0 {
		opts.MaxWritesPerCommit = DefaultOptions().MaxWritesPerCommit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Engine{
		orders:             orders,
		trades:             trades,
		stats:              stats,
		tx:                 tx,
		logger:             log,
		maxWritesPerCommit: opts.MaxWritesPerCommit,
		now:                opts.Now,
	}
}

// Match runs one matching pass for the given taker order. A pass with no
// crossing maker is a success with zero writes; the taker stays untouched.
// A failed pass leaves no partial writes behind for the failing chunk, so the
// caller may retry the same message: the pass re-reads current state and
// converges.
func (e *Engine) Match(ctx context.Context, taker *orderv1.Order) (*Result, error) {
	if taker == nil {
		return nil, fmt.Errorf("taker order cannot be nil")
	}
	if !taker.Qty.IsPositive() {
		return nil, fmt.Errorf("taker qty must be positive, got %s", taker.Qty)
	}

	remaining := taker.Remaining()
	if !remaining.IsPositive() {
		return &Result{FilledQty: decimal.Zero}, nil
	}

	book, err := e.orders.GetBook(ctx, taker.Market, taker.Side.Opposite())
	if err != nil {
		return nil, fmt.Errorf("failed to load book for %s: %w", taker.Market, err)
	}

	fills := e.planFills(taker, book, remaining)
	if len(fills) == 0 {
		e.logger.DebugContext(ctx, "no crossing maker", logger.Field{
			Key:   "market",
			Value: taker.Market,
		}, logger.Field{
			Key:   "order_id",
			Value: taker.OrderID,
		})
		return &Result{FilledQty: decimal.Zero}, nil
	}

	result, err := e.settle(ctx, taker, fills)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "matching pass settled", logger.Field{
		Key:   "market",
		Value: taker.Market,
	}, logger.Field{
		Key:   "taker_order_id",
		Value: taker.OrderID,
	}, logger.Field{
		Key:   "trades",
		Value: len(result.Trades),
	}, logger.Field{
		Key:   "filled_qty",
		Value: result.FilledQty.String(),
	})

	return result, nil
}

// planFills walks the priority-ordered book and computes the fills the taker
// produces. The walk stops at the first maker that fails the price-cross
// test: the book is price-time ordered, so no later maker can cross either.
func (e *Engine) planFills(taker *orderv1.Order, book []*orderv1.Order, remaining decimal.Decimal) []Fill {
	var fills []Fill

	for _, maker := range book {
		if !remaining.IsPositive() {
			break
		}

		// A maker without a resting price is unfillable; skip it.
		if !maker.HasPrice() {
			continue
		}

		if !taker.Crosses(*maker.Price) {
			break
		}

		makerRemaining := maker.Remaining()
		if !makerRemaining.IsPositive() {
			continue
		}

		fillQty := decimal.Min(remaining, makerRemaining)
		fillPrice := *maker.Price
		fee := Fee(fillQty, fillPrice)

		fills = append(fills, Fill{
			Maker:    maker,
			Qty:      fillQty,
			Price:    fillPrice,
			TakerFee: fee,
			MakerFee: fee,
		})

		remaining = remaining.Sub(fillQty)
	}

	return fills
}

// settle commits the planned fills. Fills are chunked so no transaction
// exceeds the write cap; each chunk applies all-or-nothing and a fill's five
// writes always land in the same chunk. Excess fills go into further chunks
// rather than being dropped.
func (e *Engine) settle(ctx context.Context, taker *orderv1.Order, fills []Fill) (*Result, error) {
	now := e.now()
	bucket := statsv1.MinuteBucket(now)

	fillsPerChunk := e.maxWritesPerCommit / writesPerFill
	if fillsPerChunk < 1 {
		fillsPerChunk = 1
	}

	result := &Result{FilledQty: decimal.Zero}

	for start := 0; start < len(fills); start += fillsPerChunk {
		end := start + fillsPerChunk
		if end > len(fills) {
			end = len(fills)
		}
		chunk := fills[start:end]

		trades := make([]*tradev1.Trade, 0, len(chunk))

		err := e.tx.WithTx(ctx, func(txCtx context.Context) error {
			for _, fill := range chunk {
				if err := e.orders.ApplyFill(txCtx, taker.Market, fill.Maker.OrderID, fill.Qty, now); err != nil {
					return fmt.Errorf("maker fill: %w", err)
				}

				if err := e.orders.ApplyFill(txCtx, taker.Market, taker.OrderID, fill.Qty, now); err != nil {
					return fmt.Errorf("taker fill: %w", err)
				}

				t := &tradev1.Trade{
					TradeID:      tradev1.NewTradeID(now),
					Market:       taker.Market,
					TakerOrderID: taker.OrderID,
					MakerOrderID: fill.Maker.OrderID,
					Price:        fill.Price,
					Qty:          fill.Qty,
					Side:         taker.Side,
					TakerFee:     fill.TakerFee,
					MakerFee:     fill.MakerFee,
					ExecutedAt:   now,
				}
				if err := e.trades.Insert(txCtx, t); err != nil {
					return fmt.Errorf("trade insert: %w", err)
				}

				volume := fill.Qty.Mul(fill.Price)
				fees := fill.TakerFee.Add(fill.MakerFee)

				if err := e.stats.AddIntraday(txCtx, taker.Market, bucket, volume, fees, now); err != nil {
					return fmt.Errorf("intraday stat: %w", err)
				}
				if err := e.stats.AddLifetime(txCtx, volume, fees); err != nil {
					return fmt.Errorf("lifetime stat: %w", err)
				}

				trades = append(trades, t)
			}
			return nil
		})
		if err != nil {
			code := pkgerrors.ErrCommitFailed
			if errors.Is(err, order.ErrOrderGone) {
				code = pkgerrors.ErrMakerGone
			}
			e.logger.ErrorContext(ctx, err, logger.Field{
				Key:   "action",
				Value: "settle_chunk",
			}, logger.Field{
				Key:   "code",
				Value: string(code),
			}, logger.Field{
				Key:   "market",
				Value: taker.Market,
			}, logger.Field{
				Key:   "taker_order_id",
				Value: taker.OrderID,
			})
			return nil, fmt.Errorf("settlement chunk failed: %w", err)
		}

		for _, t := range trades {
			result.Trades = append(result.Trades, t)
			result.FilledQty = result.FilledQty.Add(t.Qty)
		}
	}

	return result, nil
}

// Fee computes one side's fee for a fill: qty * price * FeeBps / 10000.
func Fee(qty, price decimal.Decimal) decimal.Decimal {
	return qty.Mul(price).Mul(feeBps).Div(bpsScale)
}
