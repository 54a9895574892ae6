package metadata

import (
	"context"
	"fmt"
	"sync"

	"github.com/tradewind/exchange/internal/domain/market"
	v1 "github.com/tradewind/exchange/internal/domain/market/v1"
	"github.com/tradewind/exchange/pkg/logger"
)

// Cache is a read-through, process-lifetime cache over the market metadata
// store. Every (symbol, mode) pair is resolved against the store at most
// once; not-found results are memoized too. There is no invalidation.
type Cache struct {
	repo   market.Repository
	logger logger.Interface

	mu sync.RWMutex
	// entries maps cache keys to metadata; a present nil value is a memoized
	// negative result.
	entries map[string]*v1.Metadata
}

// Ensure Cache implements the domain interface.
var _ market.Cache = (*Cache)(nil)

// NewCache creates a new metadata cache backed by the given repository.
func NewCache(repo market.Repository, log logger.Interface) *Cache {
	return &Cache{
		repo:    repo,
		logger:  log,
		entries: make(map[string]*v1.Metadata),
	}
}

// Lookup resolves (symbol, mode) to market metadata, or nil when the market
// is unknown. A store error is returned without being memoized, so the next
// lookup retries.
func (c *Cache) Lookup(ctx context.Context, symbol string, mode v1.Mode) (*v1.Metadata, error) {
	key := cacheKey(symbol, mode)

	c.mu.RLock()
	meta, hit := c.entries[key]
	c.mu.RUnlock()
	if hit {
		return meta, nil
	}

	meta, err := c.repo.GetBySymbolMode(ctx, symbol, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve market %s/%s: %w", symbol, mode, err)
	}

	c.mu.Lock()
	// A concurrent lookup may have resolved the same key; keep the first.
	if existing, hit := c.entries[key]; hit {
		c.mu.Unlock()
		return existing, nil
	}
	c.entries[key] = meta
	c.mu.Unlock()

	if meta == nil {
		c.logger.DebugContext(ctx, "market metadata not found", logger.Field{
			Key:   "symbol",
			Value: symbol,
		}, logger.Field{
			Key:   "mode",
			Value: string(mode),
		})
	}

	return meta, nil
}

func cacheKey(symbol string, mode v1.Mode) string {
	return symbol + "|" + string(mode)
}
