package trade

import (
	"context"

	v1 "github.com/tradewind/exchange/internal/domain/trade/v1"
)

// Repository is the interface for the trade store.
type Repository interface {
	// Insert persists a new trade. Trades are append-only.
	Insert(ctx context.Context, trade *v1.Trade) error
}
