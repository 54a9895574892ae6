package matcher

import (
	"fmt"
	"testing"

	orderv1 "github.com/tradewind/exchange/internal/domain/order/v1"
	"github.com/tradewind/exchange/pkg/logger"
)

func setupBenchmarkBook(depth int) []*orderv1.Order {
	book := make([]*orderv1.Order, 0, depth)
	for i := 0; i < depth; i++ {
		book = append(book, restingOrder(
			"BTC-USD",
			fmt.Sprintf("maker%d", i),
			orderv1.SideSell,
			fmt.Sprintf("%d", 50_000+i), // Vary price slightly
			"1",
			int64(i),
		))
	}
	return book
}

func BenchmarkEngine_PlanFills(b *testing.B) {
	depths := []int{10, 100, 1000}

	for _, depth := range depths {
		b.Run(fmt.Sprintf("book_depth_%d", depth), func(b *testing.B) {
			fx := newEngineFixtureB(b)
			book := setupBenchmarkBook(depth)
			taker := marketTaker("BTC-USD", "taker", orderv1.SideBuy, fmt.Sprintf("%d", depth/2))

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = fx.engine.planFills(taker, book, taker.Remaining())
			}
		})
	}
}

func newEngineFixtureB(b *testing.B) *engineFixture {
	b.Helper()

	log, err := logger.NewLogger()
	if err != nil {
		b.Fatal(err)
	}

	store := newMemStore()
	tx := &fakeTransactor{store: store}
	return &engineFixture{
		store:  store,
		tx:     tx,
		engine: NewEngine(&fakeOrderRepo{store}, &fakeTradeRepo{store}, &fakeStatsRepo{store}, tx, log, Options{}),
	}
}
