package trade

import (
	"context"
	"fmt"

	"github.com/tradewind/exchange/internal/domain/trade"
	v1 "github.com/tradewind/exchange/internal/domain/trade/v1"
	"github.com/tradewind/exchange/pkg/postgresql"
)

// Repository implements the trade store on PostgreSQL.
type Repository struct {
	db postgresql.PostgreSQLClient
}

// Ensure Repository implements the domain interface.
var _ trade.Repository = (*Repository)(nil)

// NewRepository creates a new trade repository.
func NewRepository(db postgresql.PostgreSQLClient) *Repository {
	return &Repository{
		db: db,
	}
}

// Insert persists a new trade.
func (r *Repository) Insert(ctx context.Context, t *v1.Trade) error {
	q := postgresql.QueryerFromContext(ctx, r.db)

	query := `INSERT INTO trades (trade_id, market, taker_order_id, maker_order_id,
			  price, qty, side, taker_fee, maker_fee, executed_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := q.Exec(ctx, query,
		t.TradeID, t.Market, t.TakerOrderID, t.MakerOrderID,
		t.Price, t.Qty, string(t.Side), t.TakerFee, t.MakerFee, t.ExecutedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	return nil
}
