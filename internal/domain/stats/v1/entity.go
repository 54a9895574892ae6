package v1

import (
	"time"

	"github.com/shopspring/decimal"
)

// IntradayTTL is how long an intraday bucket survives before the storage
// layer's expiry job removes it.
const IntradayTTL = 48 * time.Hour

// bucketSize is the width of an intraday bucket in milliseconds.
const bucketSize = 60_000

// IntradayStat is a per-market, per-minute rollup of traded volume and fees.
// Rows are additive and self-evicting via ExpireAt.
type IntradayStat struct {
	Market       string          `json:"market"`
	MinuteBucket int64           `json:"minuteBucket"` // epoch ms floored to the minute
	Volume       decimal.Decimal `json:"volume"`
	Fees         decimal.Decimal `json:"fees"`
	ExpireAt     time.Time       `json:"expireAt"`
}

// LifetimeStat is the single global rollup across all markets. It only ever
// grows and carries no expiry.
type LifetimeStat struct {
	Volume decimal.Decimal `json:"volume"`
	Fees   decimal.Decimal `json:"fees"`
}

// MinuteBucket floors a timestamp to its epoch-millisecond minute bucket.
func MinuteBucket(at time.Time) int64 {
	ms := at.UnixMilli()
	return ms - ms%bucketSize
}
