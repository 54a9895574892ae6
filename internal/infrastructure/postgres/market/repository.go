package market

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tradewind/exchange/internal/domain/market"
	v1 "github.com/tradewind/exchange/internal/domain/market/v1"
	"github.com/tradewind/exchange/pkg/postgresql"
)

// Repository implements the market metadata store on PostgreSQL.
type Repository struct {
	db postgresql.PostgreSQLClient
}

// Ensure Repository implements the domain interface.
var _ market.Repository = (*Repository)(nil)

// NewRepository creates a new market metadata repository.
func NewRepository(db postgresql.PostgreSQLClient) *Repository {
	return &Repository{
		db: db,
	}
}

// GetBySymbolMode returns the metadata for one market, or nil when unknown.
func (r *Repository) GetBySymbolMode(ctx context.Context, symbol string, mode v1.Mode) (*v1.Metadata, error) {
	q := postgresql.QueryerFromContext(ctx, r.db)

	query := `SELECT symbol, mode, tick_size, lot_size, synth_address
			  FROM markets WHERE symbol = $1 AND mode = $2`

	var m v1.Metadata
	err := q.QueryRow(ctx, query, symbol, string(mode)).Scan(
		&m.Symbol, &m.Mode, &m.TickSize, &m.LotSize, &m.SynthAddress)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market metadata: %w", err)
	}

	return &m, nil
}
