package metadata

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/tradewind/exchange/internal/domain/market/v1"
	"github.com/tradewind/exchange/pkg/logger"
)

type fakeMarketRepo struct {
	entries map[string]*v1.Metadata
	calls   int
	err     error
}

func (f *fakeMarketRepo) GetBySymbolMode(_ context.Context, symbol string, mode v1.Mode) (*v1.Metadata, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[symbol+"|"+string(mode)], nil
}

func newCacheFixture(t *testing.T) (*Cache, *fakeMarketRepo) {
	t.Helper()

	log, err := logger.NewLogger()
	require.NoError(t, err)

	repo := &fakeMarketRepo{entries: make(map[string]*v1.Metadata)}
	return NewCache(repo, log), repo
}

// Test 1: A resolved market is served from the cache on later lookups
func TestCache_Lookup_HitServedFromCache(t *testing.T) {
	cache, repo := newCacheFixture(t)

	repo.entries["BTC-USD|SPOT"] = &v1.Metadata{
		Symbol:   "BTC-USD",
		Mode:     v1.ModeSpot,
		TickSize: decimal.RequireFromString("0.01"),
		LotSize:  decimal.RequireFromString("0.001"),
	}

	first, err := cache.Lookup(context.Background(), "BTC-USD", v1.ModeSpot)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := cache.Lookup(context.Background(), "BTC-USD", v1.ModeSpot)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, repo.calls)
}

// Test 2: An unknown market is memoized as a negative result
func TestCache_Lookup_NegativeResultMemoized(t *testing.T) {
	cache, repo := newCacheFixture(t)

	meta, err := cache.Lookup(context.Background(), "NO-SUCH", v1.ModeSpot)
	require.NoError(t, err)
	assert.Nil(t, meta)

	meta, err = cache.Lookup(context.Background(), "NO-SUCH", v1.ModeSpot)
	require.NoError(t, err)
	assert.Nil(t, meta)
	assert.Equal(t, 1, repo.calls)
}

// Test 3: Store errors are returned and not memoized
func TestCache_Lookup_ErrorNotMemoized(t *testing.T) {
	cache, repo := newCacheFixture(t)
	repo.err = fmt.Errorf("connection refused")

	_, err := cache.Lookup(context.Background(), "BTC-USD", v1.ModeSpot)
	require.Error(t, err)

	// The store recovers; the next lookup goes through.
	repo.err = nil
	repo.entries["BTC-USD|SPOT"] = &v1.Metadata{Symbol: "BTC-USD", Mode: v1.ModeSpot}

	meta, err := cache.Lookup(context.Background(), "BTC-USD", v1.ModeSpot)
	require.NoError(t, err)
	assert.NotNil(t, meta)
	assert.Equal(t, 2, repo.calls)
}

// Test 4: The same symbol under different modes is cached separately
func TestCache_Lookup_ModeIsPartOfKey(t *testing.T) {
	cache, repo := newCacheFixture(t)

	repo.entries["BTC-USD|SPOT"] = &v1.Metadata{Symbol: "BTC-USD", Mode: v1.ModeSpot}
	repo.entries["BTC-USD|PERP"] = &v1.Metadata{Symbol: "BTC-USD", Mode: v1.ModePerp}

	spot, err := cache.Lookup(context.Background(), "BTC-USD", v1.ModeSpot)
	require.NoError(t, err)
	perp, err := cache.Lookup(context.Background(), "BTC-USD", v1.ModePerp)
	require.NoError(t, err)

	assert.Equal(t, v1.ModeSpot, spot.Mode)
	assert.Equal(t, v1.ModePerp, perp.Mode)
	assert.Equal(t, 2, repo.calls)
}
