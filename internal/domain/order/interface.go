package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	v1 "github.com/tradewind/exchange/internal/domain/order/v1"
)

// ErrOrderGone is returned by a conditional fill whose target order was
// deleted, cancelled, or filled by an uncoordinated path. The whole
// settlement transaction must abort when this surfaces.
var ErrOrderGone = errors.New("order no longer fillable")

// Repository is the interface for the order store.
type Repository interface {
	// Get returns a single order, or nil when it does not exist.
	Get(ctx context.Context, market, orderID string) (*v1.Order, error)

	// Insert persists a new order.
	Insert(ctx context.Context, order *v1.Order) error

	// GetBook returns the resting orders for a market on one side, in true
	// price-time priority: best price first (lowest ask, highest bid), ties
	// broken by ascending sort key. Orders without a price and fully filled
	// orders are excluded.
	GetBook(ctx context.Context, market string, side v1.Side) ([]*v1.Order, error)

	// ApplyFill increments an order's filled quantity by qty and derives its
	// status. The update is conditional: it fails with ErrOrderGone when the
	// order no longer exists, is already filled, or lacks capacity for qty.
	ApplyFill(ctx context.Context, market, orderID string, qty decimal.Decimal, now time.Time) error
}
