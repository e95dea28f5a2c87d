package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratengine/broker/sim"
	"github.com/rustyeddy/stratengine/orders"
	"github.com/rustyeddy/stratengine/strategy"
)

func newLiveHarness(t *testing.T) (*Live, *sim.Engine, *strategy.Store) {
	t.Helper()
	dir := t.TempDir()

	eng := sim.NewEngine(d("100000"))
	strategies := strategy.NewStore(filepath.Join(dir, "strategies.json"))
	orderStore := orders.NewStore(filepath.Join(dir, "orders.json"))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	exec := &Executor{
		Broker:     eng,
		Strategies: strategies,
		Orders:     orderStore,
		Ledger:     &memLedger{},
		Audit:      &memAudit{},
		Log:        log,
	}

	return &Live{
		Broker:     eng,
		Strategies: strategies,
		Orders:     orderStore,
		Executor:   exec,
		Evaluator:  strategy.NewEvaluator(&BrokerView{Broker: eng, Orders: orderStore}),
		Lock:       NewLock(filepath.Join(dir, "engine.lock")),
		Interval:   time.Millisecond,
		Log:        log,
	}, eng, strategies
}

func TestCycleAdvancesActiveStrategies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	live, eng, strategies := newLiveHarness(t)
	eng.SetBar("AAPL", bar("100", "101", "99", "100"))

	s := testStrategy(t)
	require.NoError(t, strategies.Add(s))

	// First cycle places the market entry, which fills immediately.
	require.NoError(t, live.Cycle(ctx))
	got, err := strategies.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, strategy.EntryActive, got.Phase)

	// Second cycle observes the fill and opens the position.
	require.NoError(t, live.Cycle(ctx))
	got, err = strategies.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, strategy.PositionOpen, got.Phase)
	assert.True(t, got.EntryFillPrice.Equal(d("100")))
}

func TestCycleIgnoresPausedStrategies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	live, eng, strategies := newLiveHarness(t)
	eng.SetBar("AAPL", bar("100", "101", "99", "100"))

	s := testStrategy(t)
	require.NoError(t, s.Pause())
	require.NoError(t, strategies.Add(s))

	require.NoError(t, live.Cycle(ctx))
	got, err := strategies.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, strategy.Paused, got.Phase)
	assert.Empty(t, got.EntryOrderID)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	live, eng, _ := newLiveHarness(t)
	eng.SetBar("AAPL", bar("100", "101", "99", "100"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- live.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop on cancel")
	}

	// The lock must be released on the way out.
	second := NewLock(live.Lock.path)
	assert.NoError(t, second.Acquire())
	second.Release()
}
