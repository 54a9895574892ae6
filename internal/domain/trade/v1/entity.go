package v1

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	orderv1 "github.com/tradewind/exchange/internal/domain/order/v1"
)

// Trade represents a single fill between a taker and a maker. Trades are
// immutable once written; the price is always the maker's resting price.
type Trade struct {
	TradeID      string          `json:"tradeId"`
	Market       string          `json:"market"`
	TakerOrderID string          `json:"takerOrderId"`
	MakerOrderID string          `json:"makerOrderId"`
	Price        decimal.Decimal `json:"price"`
	Qty          decimal.Decimal `json:"qty"`
	Side         orderv1.Side    `json:"side"` // taker's side
	TakerFee     decimal.Decimal `json:"takerFee"`
	MakerFee     decimal.Decimal `json:"makerFee"`
	ExecutedAt   time.Time       `json:"executedAt"`
}

// NewTradeID returns a collision-resistant, lexicographically sortable trade id.
func NewTradeID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), rand.Reader).String()
}
