package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tradewind/exchange/internal/domain/stats"
	v1 "github.com/tradewind/exchange/internal/domain/stats/v1"
	"github.com/tradewind/exchange/pkg/postgresql"
)

// lifetimeKey is the primary key of the single global rollup row.
const lifetimeKey = "global"

// Repository implements the statistics sink on PostgreSQL. Both upserts are
// additive merges: the ON CONFLICT arithmetic runs inside the database, so
// concurrent updates from different markets or buckets commute and never lose
// writes.
type Repository struct {
	db postgresql.PostgreSQLClient
}

// Ensure Repository implements the domain interface.
var _ stats.Repository = (*Repository)(nil)

// NewRepository creates a new stats repository.
func NewRepository(db postgresql.PostgreSQLClient) *Repository {
	return &Repository{
		db: db,
	}
}

// AddIntraday adds volume and fees to the per-market minute bucket, creating
// the row on first trade. ExpireAt is refreshed on every hit; the storage
// layer's expiry job removes stale rows, never this code.
func (r *Repository) AddIntraday(ctx context.Context, market string, bucket int64, volume, fees decimal.Decimal, now time.Time) error {
	q := postgresql.QueryerFromContext(ctx, r.db)

	query := `INSERT INTO intraday_stats (market, minute_bucket, volume, fees, expire_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (market, minute_bucket) DO UPDATE
			  SET volume = intraday_stats.volume + EXCLUDED.volume,
			      fees = intraday_stats.fees + EXCLUDED.fees,
			      expire_at = EXCLUDED.expire_at`

	expireAt := now.Add(v1.IntradayTTL)

	_, err := q.Exec(ctx, query, market, bucket, volume, fees, expireAt)
	if err != nil {
		return fmt.Errorf("failed to upsert intraday stat: %w", err)
	}

	return nil
}

// AddLifetime adds volume and fees to the global rollup row.
func (r *Repository) AddLifetime(ctx context.Context, volume, fees decimal.Decimal) error {
	q := postgresql.QueryerFromContext(ctx, r.db)

	query := `INSERT INTO lifetime_stats (id, volume, fees)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (id) DO UPDATE
			  SET volume = lifetime_stats.volume + EXCLUDED.volume,
			      fees = lifetime_stats.fees + EXCLUDED.fees`

	_, err := q.Exec(ctx, query, lifetimeKey, volume, fees)
	if err != nil {
		return fmt.Errorf("failed to upsert lifetime stat: %w", err)
	}

	return nil
}
