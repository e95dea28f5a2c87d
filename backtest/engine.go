// Package backtest replays historical bars through the same evaluator
// and executor the live engine uses, with the simulated broker
// standing in for a real one. Because the decision and execution
// paths are shared, a strategy that behaves one way in replay behaves
// the same way live; only the market data source differs.
package backtest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/broker/sim"
	"github.com/rustyeddy/stratengine/engine"
	"github.com/rustyeddy/stratengine/errs"
	"github.com/rustyeddy/stratengine/internal/id"
	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/strategy"
)

// Result is everything a finished run produced: the raw equity curve,
// the reduced performance metrics, and where the strategy ended up.
type Result struct {
	ID         string    `json:"id"`
	StrategyID string    `json:"strategy_id"`
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`

	InitialCapital decimal.Decimal `json:"initial_capital"`
	FinalEquity    decimal.Decimal `json:"final_equity"`
	TotalReturnPct decimal.Decimal `json:"total_return_pct"`
	MaxDrawdown    decimal.Decimal `json:"max_drawdown"`
	Trades         int             `json:"trades"`
	WinRate        float64         `json:"win_rate"`

	// ProfitFactor is gross profit over gross loss; nil when the run
	// had no losing trades to divide by.
	ProfitFactor *float64 `json:"profit_factor,omitempty"`

	BarsProcessed int               `json:"bars_processed"`
	FinalPhase    strategy.Phase    `json:"final_phase"`
	Notes         string            `json:"notes,omitempty"`
	EquityCurve   []decimal.Decimal `json:"equity_curve"`
	Fills         []sim.Fill        `json:"fills"`
}

// Engine drives one strategy over a bar series.
type Engine struct {
	Log *slog.Logger
}

func NewEngine(log *slog.Logger) *Engine {
	return &Engine{Log: log}
}

// Run replays bars oldest-first against a fresh simulated account.
// The strategy is deep-copied, so the caller's record is untouched;
// the copy runs to a terminal phase or to the end of the series,
// whichever comes first. One equity point is recorded per processed
// bar.
func (e *Engine) Run(ctx context.Context, strat *strategy.Strategy, bars []market.Bar, initialCapital decimal.Decimal) (*Result, error) {
	if len(bars) == 0 {
		return nil, errs.Validation("backtest requires at least one bar")
	}
	if initialCapital.Sign() <= 0 {
		return nil, errs.Validation("initial capital must be positive, got %s", initialCapital)
	}
	if err := strat.Validate(); err != nil {
		return nil, err
	}

	run, err := cloneStrategy(strat)
	if err != nil {
		return nil, err
	}
	run.Enabled = true

	if e.Log == nil {
		e.Log = slog.Default()
	}

	paper := sim.NewEngine(initialCapital)
	strategies := &memStrategies{s: run}
	orderStore := &memOrders{}
	trades := &memLedger{}

	exec := &engine.Executor{
		Broker:     paper,
		Strategies: strategies,
		Orders:     orderStore,
		Ledger:     trades,
		Log:        e.Log,
	}
	eval := strategy.NewEvaluator(&engine.BrokerView{Broker: paper, Orders: orderStore})

	res := &Result{
		ID:             id.New(),
		StrategyID:     strat.ID,
		Symbol:         strat.Symbol,
		Type:           string(strat.Type),
		CreatedAt:      time.Now().UTC(),
		InitialCapital: initialCapital,
		EquityCurve:    make([]decimal.Decimal, 0, len(bars)),
	}

	for _, b := range bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		paper.SetBar(run.Symbol, b)

		actions, err := eval.Evaluate(ctx, []*strategy.Strategy{run})
		if err != nil {
			return nil, err
		}
		for _, act := range actions {
			if err := exec.Apply(ctx, act); err != nil {
				return nil, err
			}
		}

		res.EquityCurve = append(res.EquityCurve, paper.Equity())
		res.BarsProcessed++

		if run.Phase.IsTerminal() {
			break
		}
	}

	res.FinalEquity = paper.Equity()
	res.FinalPhase = run.Phase
	res.Notes = run.Notes
	res.Fills = paper.Fills()
	reduceMetrics(res, trades.rows)

	return res, nil
}

// cloneStrategy round-trips through JSON so replay state never leaks
// back into the persisted record.
func cloneStrategy(s *strategy.Strategy) (*strategy.Strategy, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var cp strategy.Strategy
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
