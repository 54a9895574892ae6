package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderv1 "github.com/tradewind/exchange/internal/domain/order/v1"
	"github.com/tradewind/exchange/pkg/logger"
)

type fakeChangeStream struct {
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (f *fakeChangeStream) FetchMessage(_ context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeChangeStream) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeChangeStream) Close() error {
	f.closed = true
	return nil
}

type fakeLaneWriter struct {
	mu      sync.Mutex
	written []kafka.Message
	err     error
}

func (f *fakeLaneWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

type fakeDeduper struct {
	mu       sync.Mutex
	seen     map[string]bool
	seenErr  error
	claimErr error
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: make(map[string]bool)}
}

func (f *fakeDeduper) Seen(_ context.Context, orderID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seenErr != nil {
		return false, f.seenErr
	}
	return f.seen[orderID], nil
}

func (f *fakeDeduper) Claim(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return f.claimErr
	}
	f.seen[orderID] = true
	return nil
}

func (f *fakeDeduper) claimed(orderID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[orderID]
}

type routerFixture struct {
	reader  *fakeChangeStream
	spot    *fakeLaneWriter
	futures *fakeLaneWriter
	dedup   *fakeDeduper
	router  *Router
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	log, err := logger.NewLogger()
	require.NoError(t, err)

	fx := &routerFixture{
		reader:  &fakeChangeStream{},
		spot:    &fakeLaneWriter{},
		futures: &fakeLaneWriter{},
		dedup:   newFakeDeduper(),
	}

	lanes := map[orderv1.OrderType]Lane{
		orderv1.OrderTypeMarket: {Name: "spot", Writer: fx.spot},
		orderv1.OrderTypeLimit:  {Name: "spot", Writer: fx.spot},
		orderv1.OrderTypeFuture: {Name: "futures", Writer: fx.futures},
	}

	r, err := NewRouter(fx.reader, lanes, fx.dedup, log, DefaultOptions())
	require.NoError(t, err)
	fx.router = r

	return fx
}

func insertEvent(t *testing.T, market, orderID string, orderType orderv1.OrderType) kafka.Message {
	t.Helper()
	return changeEvent(t, orderv1.EventTypeInsert, market, orderID, orderType)
}

func changeEvent(t *testing.T, eventType orderv1.EventType, market, orderID string, orderType orderv1.OrderType) kafka.Message {
	t.Helper()

	payload, err := json.Marshal(orderv1.ChangeEvent{
		EventType: eventType,
		Order: &orderv1.Order{
			Market:  market,
			OrderID: orderID,
			Side:    orderv1.SideBuy,
			Type:    orderType,
			Qty:     decimal.NewFromInt(1),
			Status:  orderv1.StatusOpen,
		},
	})
	require.NoError(t, err)
	return kafka.Message{Value: payload}
}

func decodeQueueMessage(t *testing.T, msg kafka.Message) orderv1.QueueMessage {
	t.Helper()
	var qm orderv1.QueueMessage
	require.NoError(t, json.Unmarshal(msg.Value, &qm))
	return qm
}

// Test 1: Constructor rejects an empty lane table
func TestNewRouter_EmptyLaneTable(t *testing.T) {
	log, err := logger.NewLogger()
	require.NoError(t, err)

	_, err = NewRouter(&fakeChangeStream{}, nil, newFakeDeduper(), log, DefaultOptions())
	assert.Error(t, err)
}

// Test 2: Inserts land on the lane their order type maps to
func TestRouter_RouteBatch_ByOrderType(t *testing.T) {
	fx := newRouterFixture(t)

	batch := []kafka.Message{
		insertEvent(t, "BTC-USD", "o1", orderv1.OrderTypeMarket),
		insertEvent(t, "BTC-USD", "o2", orderv1.OrderTypeLimit),
		insertEvent(t, "BTC-DEC26", "o3", orderv1.OrderTypeFuture),
	}

	err := fx.router.RouteBatch(context.Background(), batch)
	require.NoError(t, err)

	assert.Len(t, fx.spot.written, 2)
	assert.Len(t, fx.futures.written, 1)

	qm := decodeQueueMessage(t, fx.futures.written[0])
	assert.Equal(t, "o3", qm.OrderID)
	assert.Equal(t, "BTC-DEC26", qm.Market)
	require.NotNil(t, qm.Order)
	assert.Equal(t, orderv1.OrderTypeFuture, qm.Order.Type)
}

// Test 3: The lane message is keyed by market
func TestRouter_RouteBatch_OrderingKeyIsMarket(t *testing.T) {
	fx := newRouterFixture(t)

	err := fx.router.RouteBatch(context.Background(), []kafka.Message{
		insertEvent(t, "ETH-USD", "o1", orderv1.OrderTypeLimit),
	})
	require.NoError(t, err)

	require.Len(t, fx.spot.written, 1)
	assert.Equal(t, []byte("ETH-USD"), fx.spot.written[0].Key)
}

// Test 4: Non-insert events are dropped
func TestRouter_RouteBatch_DropsNonInsertEvents(t *testing.T) {
	fx := newRouterFixture(t)

	batch := []kafka.Message{
		changeEvent(t, orderv1.EventTypeModify, "BTC-USD", "o1", orderv1.OrderTypeLimit),
		changeEvent(t, orderv1.EventTypeRemove, "BTC-USD", "o2", orderv1.OrderTypeLimit),
		insertEvent(t, "BTC-USD", "o3", orderv1.OrderTypeLimit),
	}

	err := fx.router.RouteBatch(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, fx.spot.written, 1)
	assert.Equal(t, "o3", decodeQueueMessage(t, fx.spot.written[0]).OrderID)
}

// Test 5: An unroutable order type is dropped without failing the batch
func TestRouter_RouteBatch_DropsUnroutableType(t *testing.T) {
	fx := newRouterFixture(t)

	batch := []kafka.Message{
		insertEvent(t, "BTC-CALL", "o1", orderv1.OrderTypeOption),
		insertEvent(t, "BTC-USD", "o2", orderv1.OrderTypeLimit),
	}

	err := fx.router.RouteBatch(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, fx.spot.written, 1)
	assert.Equal(t, "o2", decodeQueueMessage(t, fx.spot.written[0]).OrderID)
}

// Test 6: Duplicate inserts within the window are routed once
func TestRouter_RouteBatch_DedupWindow(t *testing.T) {
	fx := newRouterFixture(t)

	first := []kafka.Message{insertEvent(t, "BTC-USD", "o1", orderv1.OrderTypeLimit)}
	require.NoError(t, fx.router.RouteBatch(context.Background(), first))

	replay := []kafka.Message{insertEvent(t, "BTC-USD", "o1", orderv1.OrderTypeLimit)}
	require.NoError(t, fx.router.RouteBatch(context.Background(), replay))

	assert.Len(t, fx.spot.written, 1)
}

// Test 7: An unreachable dedup window routes anyway
func TestRouter_RouteBatch_DedupUnavailableRoutesAnyway(t *testing.T) {
	fx := newRouterFixture(t)
	fx.dedup.seenErr = fmt.Errorf("redis: connection refused")

	err := fx.router.RouteBatch(context.Background(), []kafka.Message{
		insertEvent(t, "BTC-USD", "o1", orderv1.OrderTypeLimit),
	})
	require.NoError(t, err)
	assert.Len(t, fx.spot.written, 1)
}

// Test 8: One failing lane does not block its siblings
func TestRouter_RouteBatch_LaneFailureIsolated(t *testing.T) {
	fx := newRouterFixture(t)
	fx.futures.err = fmt.Errorf("broker unavailable")

	batch := []kafka.Message{
		insertEvent(t, "BTC-USD", "o1", orderv1.OrderTypeLimit),
		insertEvent(t, "BTC-DEC26", "o2", orderv1.OrderTypeFuture),
	}

	err := fx.router.RouteBatch(context.Background(), batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "futures")

	// The healthy lane still got its share of the batch.
	assert.Len(t, fx.spot.written, 1)
}

// Test 9: Malformed change events are dropped, not retried
func TestRouter_RouteBatch_DropsMalformedEvent(t *testing.T) {
	fx := newRouterFixture(t)

	batch := []kafka.Message{
		{Value: []byte("not json")},
		insertEvent(t, "BTC-USD", "o1", orderv1.OrderTypeLimit),
	}

	err := fx.router.RouteBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Len(t, fx.spot.written, 1)
}

// Test 10: Stop closes the change stream reader
func TestRouter_Stop(t *testing.T) {
	fx := newRouterFixture(t)

	require.NoError(t, fx.router.Stop())
	assert.True(t, fx.reader.closed)
}

// Test 11: Batch order is preserved within a lane
func TestRouter_RouteBatch_PreservesOrderWithinLane(t *testing.T) {
	fx := newRouterFixture(t)

	batch := []kafka.Message{
		insertEvent(t, "BTC-USD", "o1", orderv1.OrderTypeLimit),
		insertEvent(t, "BTC-USD", "o2", orderv1.OrderTypeLimit),
		insertEvent(t, "BTC-USD", "o3", orderv1.OrderTypeLimit),
	}

	require.NoError(t, fx.router.RouteBatch(context.Background(), batch))
	require.Len(t, fx.spot.written, 3)

	var ids []string
	for _, msg := range fx.spot.written {
		ids = append(ids, decodeQueueMessage(t, msg).OrderID)
	}
	assert.Equal(t, []string{"o1", "o2", "o3"}, ids)
}

// Test 12: A failed enqueue leaves no dedup claim, so the redelivered batch
// routes the order instead of dropping it as a duplicate
func TestRouter_RouteBatch_EnqueueFailureStaysRetriable(t *testing.T) {
	fx := newRouterFixture(t)
	fx.spot.err = fmt.Errorf("broker unavailable")

	batch := []kafka.Message{insertEvent(t, "BTC-USD", "o1", orderv1.OrderTypeLimit)}

	require.Error(t, fx.router.RouteBatch(context.Background(), batch))
	assert.False(t, fx.dedup.claimed("o1"))

	// The broker recovers and the uncommitted batch is redelivered.
	fx.spot.err = nil
	require.NoError(t, fx.router.RouteBatch(context.Background(), batch))

	require.Len(t, fx.spot.written, 1)
	assert.Equal(t, "o1", decodeQueueMessage(t, fx.spot.written[0]).OrderID)
	assert.True(t, fx.dedup.claimed("o1"))
}

// Test 13: Only the failing lane's orders stay unclaimed; the healthy
// sibling's orders are claimed and not enqueued twice on redelivery
func TestRouter_RouteBatch_RedeliverySkipsAlreadyRoutedSiblings(t *testing.T) {
	fx := newRouterFixture(t)
	fx.futures.err = fmt.Errorf("broker unavailable")

	batch := []kafka.Message{
		insertEvent(t, "BTC-USD", "o1", orderv1.OrderTypeLimit),
		insertEvent(t, "BTC-DEC26", "o2", orderv1.OrderTypeFuture),
	}

	require.Error(t, fx.router.RouteBatch(context.Background(), batch))
	assert.True(t, fx.dedup.claimed("o1"))
	assert.False(t, fx.dedup.claimed("o2"))

	fx.futures.err = nil
	require.NoError(t, fx.router.RouteBatch(context.Background(), batch))

	assert.Len(t, fx.spot.written, 1)
	require.Len(t, fx.futures.written, 1)
	assert.Equal(t, "o2", decodeQueueMessage(t, fx.futures.written[0]).OrderID)
}

// Test 14: A failed claim after a successful write still routes the order
func TestRouter_RouteBatch_ClaimFailureDoesNotFailBatch(t *testing.T) {
	fx := newRouterFixture(t)
	fx.dedup.claimErr = fmt.Errorf("redis: connection refused")

	err := fx.router.RouteBatch(context.Background(), []kafka.Message{
		insertEvent(t, "BTC-USD", "o1", orderv1.OrderTypeLimit),
	})
	require.NoError(t, err)
	assert.Len(t, fx.spot.written, 1)
}
