// Package engine runs strategies against a broker: the live
// fixed-interval poll loop, the shared action executor, and the
// singleton lock that keeps one live engine per machine.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/rustyeddy/stratengine/broker"
	"github.com/rustyeddy/stratengine/monitoring"
	"github.com/rustyeddy/stratengine/orders"
	"github.com/rustyeddy/stratengine/strategy"
)

// Live is the polling execution engine. It is single-threaded and
// synchronous: each cycle blocks on broker calls and store writes,
// and a stop request is observed at the top of the next iteration
// once the current cycle finishes.
type Live struct {
	Broker     broker.Broker
	Strategies *strategy.Store
	Orders     *orders.Store
	Executor   *Executor
	Evaluator  *strategy.Evaluator
	Lock       *Lock
	Interval   time.Duration
	Log        *slog.Logger
}

// Run acquires the singleton lock, reconciles persisted orders
// against the broker, then polls until ctx is cancelled.
func (e *Live) Run(ctx context.Context) error {
	if err := e.Lock.Acquire(); err != nil {
		return err
	}
	defer e.Lock.Release()

	e.Log.Info("engine starting", "interval", e.Interval)

	if err := orders.Reconcile(ctx, e.Orders, e.Broker, e.Log); err != nil {
		return err
	}

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Log.Info("engine stopping", "reason", ctx.Err())
			e.Executor.audit("engine_stopped", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := e.Cycle(ctx); err != nil {
				e.Log.Error("poll cycle failed", "err", err)
			}
		}
	}
}

// Cycle runs one evaluate/apply pass. Action failures are logged and
// the cycle moves to the next action; each applied action has already
// been persisted before the next strategy is touched.
func (e *Live) Cycle(ctx context.Context) error {
	monitoring.RecordPollCycle()

	open, err := e.Broker.IsMarketOpen(ctx)
	if err != nil {
		return err
	}
	if !open {
		e.Log.Debug("market closed, skipping cycle")
		return nil
	}

	active, err := e.Strategies.Active()
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return nil
	}

	actions, err := e.Evaluator.Evaluate(ctx, active)
	if err != nil {
		return err
	}

	for _, act := range actions {
		if err := e.Executor.Apply(ctx, act); err != nil {
			e.Log.Error("apply action failed",
				"kind", act.Kind, "strategy", act.StrategyID, "err", err)
		}
	}
	return nil
}
