package backtest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/guard"
	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/strategy"
)

// Service runs backtests behind the admission guard: a sliding-window
// rate limit on new runs and a hard wall clock on each run, with the
// finished result persisted before the caller sees it.
type Service struct {
	Engine  *Engine
	Store   *Store
	Limiter *guard.Limiter
	Timeout time.Duration
}

// Run executes one guarded backtest and saves the result. A run that
// exceeds the timeout is abandoned and its result discarded.
func (sv *Service) Run(ctx context.Context, strat *strategy.Strategy, bars []market.Bar, initialCapital decimal.Decimal) (*Result, error) {
	if sv.Limiter != nil {
		if err := sv.Limiter.Allow("backtest"); err != nil {
			return nil, err
		}
	}

	// The result crosses a channel so an abandoned, timed-out run can
	// never write into a result the caller already gave up on.
	out := make(chan *Result, 1)
	run := func(ctx context.Context) error {
		r, err := sv.Engine.Run(ctx, strat, bars, initialCapital)
		if err != nil {
			return err
		}
		out <- r
		return nil
	}

	if sv.Timeout > 0 {
		if err := guard.RunWithTimeout(ctx, "backtest", sv.Timeout, run); err != nil {
			return nil, err
		}
	} else if err := run(ctx); err != nil {
		return nil, err
	}
	res := <-out

	if sv.Store != nil {
		if err := sv.Store.Save(res); err != nil {
			return nil, err
		}
	}
	return res, nil
}
