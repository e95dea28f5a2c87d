package orders

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratengine/broker"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "orders.json"))
}

func buyReq(symbol string) broker.OrderRequest {
	return broker.OrderRequest{
		Symbol: symbol, Qty: d("10"), Side: broker.Buy, Type: broker.Market,
	}
}

func TestUpsertMergesByLocalID(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	o := NewOrder(buyReq("AAPL"), "strat-1")
	require.NoError(t, st.Upsert(o))

	o.Status = Submitted
	o.ExternalID = "brk-77"
	require.NoError(t, st.Upsert(o))

	all, err := st.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, Submitted, all[0].Status)
	assert.Equal(t, "brk-77", all[0].ExternalID)
}

func TestUpsertMergesByExternalID(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	o := NewOrder(buyReq("AAPL"), "strat-1")
	o.ExternalID = "brk-77"
	require.NoError(t, st.Upsert(o))

	// A different local id with the same external id is the same order.
	dup := NewOrder(buyReq("AAPL"), "strat-1")
	dup.ExternalID = "brk-77"
	dup.Status = Filled
	require.NoError(t, st.Upsert(dup))

	all, err := st.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, Filled, all[0].Status)
}

func TestUpsertMergesByCrossMatch(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)

	// First write: pre-submission record, local id only.
	o := NewOrder(buyReq("AAPL"), "strat-1")
	require.NoError(t, st.Upsert(o))

	// Second write keyed by the broker's id, which happens to be the
	// local id (brokers that echo client order ids).
	echo := &Order{
		ID:         "reconciled-row",
		ExternalID: o.ID,
		Symbol:     "AAPL", Side: broker.Buy, Qty: d("10"),
		Type: broker.Market, Status: Filled,
	}
	require.NoError(t, st.Upsert(echo))

	all, err := st.List()
	require.NoError(t, err)
	require.Len(t, all, 1, "cross-matched ids must merge, not duplicate")
	assert.Equal(t, Filled, all[0].Status)
}

func TestPendingForSymbol(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)

	pending := NewOrder(buyReq("AAPL"), "")
	require.NoError(t, st.Upsert(pending))

	filled := NewOrder(buyReq("AAPL"), "")
	filled.Status = Filled
	require.NoError(t, st.Upsert(filled))

	other := NewOrder(buyReq("MSFT"), "")
	require.NoError(t, st.Upsert(other))

	got, err := st.PendingForSymbol("AAPL")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)
}

// scriptedBroker serves a fixed order map; only GetOrder matters here.
type scriptedBroker struct {
	broker.Broker
	orders map[string]broker.Order
	calls  int
}

func (s *scriptedBroker) GetOrder(_ context.Context, orderID string) (*broker.Order, error) {
	s.calls++
	if o, ok := s.orders[orderID]; ok {
		return &o, nil
	}
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestReconcileOverwritesWithBrokerTruth(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	o := NewOrder(buyReq("AAPL"), "strat-1")
	o.Status = Submitted
	o.ExternalID = "brk-1"
	require.NoError(t, st.Upsert(o))

	b := &scriptedBroker{orders: map[string]broker.Order{
		"brk-1": {ID: "brk-1", Status: broker.StatusFilled, FilledAvgPrice: d("101.50")},
	}}

	require.NoError(t, Reconcile(context.Background(), st, b, testLogger()))

	got, err := st.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, Filled, got.Status)
	assert.True(t, got.FillPrice.Equal(d("101.50")))
}

func TestReconcileFallsBackToLocalID(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	o := NewOrder(buyReq("AAPL"), "")
	o.Status = Submitted // never got an external id before the crash
	require.NoError(t, st.Upsert(o))

	b := &scriptedBroker{orders: map[string]broker.Order{
		o.ID: {ID: o.ID, Status: broker.StatusCanceled},
	}}
	require.NoError(t, Reconcile(context.Background(), st, b, testLogger()))

	got, err := st.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, Canceled, got.Status)
}

func TestReconcileIsIdempotent(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	o := NewOrder(buyReq("AAPL"), "")
	o.Status = Submitted
	o.ExternalID = "brk-1"
	require.NoError(t, st.Upsert(o))

	b := &scriptedBroker{orders: map[string]broker.Order{
		"brk-1": {ID: "brk-1", Status: broker.StatusFilled, FilledAvgPrice: d("100")},
	}}

	require.NoError(t, Reconcile(context.Background(), st, b, testLogger()))
	first, err := st.List()
	require.NoError(t, err)

	require.NoError(t, Reconcile(context.Background(), st, b, testLogger()))
	second, err := st.List()
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Status, second[i].Status)
		assert.Equal(t, first[i].UpdatedAt, second[i].UpdatedAt,
			"second pass with no broker change must not rewrite records")
	}
}

func TestReconcileSkipsUnknownOrders(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	known := NewOrder(buyReq("AAPL"), "")
	known.Status = Submitted
	known.ExternalID = "brk-1"
	require.NoError(t, st.Upsert(known))

	ghost := NewOrder(buyReq("MSFT"), "")
	ghost.Status = Submitted
	ghost.ExternalID = "brk-gone"
	require.NoError(t, st.Upsert(ghost))

	b := &scriptedBroker{orders: map[string]broker.Order{
		"brk-1": {ID: "brk-1", Status: broker.StatusFilled},
	}}

	// The unknown order is skipped, not fatal.
	require.NoError(t, Reconcile(context.Background(), st, b, testLogger()))

	got, err := st.Get(known.ID)
	require.NoError(t, err)
	assert.Equal(t, Filled, got.Status)

	gotGhost, err := st.Get(ghost.ID)
	require.NoError(t, err)
	assert.Equal(t, Submitted, gotGhost.Status)
}
