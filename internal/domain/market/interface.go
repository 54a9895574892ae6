package market

import (
	"context"

	v1 "github.com/tradewind/exchange/internal/domain/market/v1"
)

// Repository is the interface for the market metadata store.
type Repository interface {
	// GetBySymbolMode returns the metadata for one market, or nil when the
	// market is unknown.
	GetBySymbolMode(ctx context.Context, symbol string, mode v1.Mode) (*v1.Metadata, error)
}

// Cache is a read-through, process-lifetime cache over the metadata store.
// Negative results are memoized too; there is no invalidation.
type Cache interface {
	// Lookup resolves (symbol, mode) to market metadata, or nil when the
	// market is unknown.
	Lookup(ctx context.Context, symbol string, mode v1.Mode) (*v1.Metadata, error)
}
