package stats

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository is the interface for the statistics sink. Both operations are
// commutative additive merges so concurrent updates never lose writes; the
// lifetime row in particular is a single hot key and must never be updated
// through read-modify-write.
type Repository interface {
	// AddIntraday adds volume and fees to the (market, minute bucket) rollup,
	// creating the row on first trade and refreshing its expiry.
	AddIntraday(ctx context.Context, market string, bucket int64, volume, fees decimal.Decimal, now time.Time) error

	// AddLifetime adds volume and fees to the global rollup.
	AddLifetime(ctx context.Context, volume, fees decimal.Decimal) error
}
