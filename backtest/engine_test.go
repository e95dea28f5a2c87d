package backtest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/strategy"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func bar(o, h, l, c string) market.Bar {
	return market.Bar{Open: d(o), High: d(h), Low: d(l), Close: d(c)}
}

// winningBars carries a trailing-stop strategy through a profitable
// full lifecycle: entry at 100, exit stopped out at 106.4.
func winningBars() []market.Bar {
	return []market.Bar{
		bar("100", "101", "99", "100"),
		bar("101", "105", "100", "105"),
		bar("106", "110", "105", "110"),
		bar("109", "112", "108", "110"),
		bar("104", "106", "100", "101"),
	}
}

func trailingStrategy(t *testing.T) *strategy.Strategy {
	t.Helper()
	s, err := strategy.New("AAPL", strategy.TrailingStop, d("10"), strategy.EntryConfig{Type: strategy.EntryMarket})
	require.NoError(t, err)
	s.TrailingStop = &strategy.TrailingStopConfig{TrailPercent: d("5")}
	return s
}

func TestRunTrailingStopFullLifecycle(t *testing.T) {
	t.Parallel()

	// Entry fills at 100 on the first bar. The trailing exit is
	// placed once the position opens, ratchets its watermark to the
	// 112 high, and stops out at 112 * 0.95 = 106.4 when the last
	// bar trades down through it.
	bars := winningBars()

	strat := trailingStrategy(t)
	res, err := NewEngine(nil).Run(context.Background(), strat, bars, d("100000"))
	require.NoError(t, err)

	assert.Equal(t, strategy.Completed, res.FinalPhase)
	assert.Equal(t, 5, res.BarsProcessed)
	require.Len(t, res.EquityCurve, 5)

	// Bought 10 at 100, sold 10 at 106.4.
	assert.True(t, res.FinalEquity.Equal(d("100064")), "final equity %s", res.FinalEquity)
	assert.True(t, res.TotalReturnPct.Equal(d("0.064")), "return %s", res.TotalReturnPct)

	assert.Equal(t, 1, res.Trades)
	assert.Equal(t, 100.0, res.WinRate)
	assert.Nil(t, res.ProfitFactor, "undefined with no losing trades")

	// Peak equity 100100 on the 110 close, final 100064.
	assert.True(t, res.MaxDrawdown.Equal(d("36")), "drawdown %s", res.MaxDrawdown)

	require.Len(t, res.Fills, 2)
	assert.True(t, res.Fills[0].Price.Equal(d("100")))
	assert.True(t, res.Fills[1].Price.Equal(d("106.4")))
}

func TestRunStopsEarlyOnTerminalPhase(t *testing.T) {
	t.Parallel()

	bars := append(winningBars(),
		bar("102", "103", "101", "102"),
		bar("103", "104", "102", "103"),
	)

	res, err := NewEngine(nil).Run(context.Background(), trailingStrategy(t), bars, d("100000"))
	require.NoError(t, err)

	assert.Equal(t, strategy.Completed, res.FinalPhase)
	assert.Equal(t, 5, res.BarsProcessed, "replay must stop at the terminal phase")
	assert.Len(t, res.EquityCurve, 5)
}

func TestRunDoesNotMutateCallerStrategy(t *testing.T) {
	t.Parallel()

	strat := trailingStrategy(t)
	bars := []market.Bar{bar("100", "101", "99", "100")}

	_, err := NewEngine(nil).Run(context.Background(), strat, bars, d("100000"))
	require.NoError(t, err)

	assert.Equal(t, strategy.Pending, strat.Phase)
	assert.Empty(t, strat.EntryOrderID)
}

func TestRunLimitEntryWaitsForTouch(t *testing.T) {
	t.Parallel()

	s, err := strategy.New("AAPL", strategy.TrailingStop, d("10"), strategy.EntryConfig{
		Type:  strategy.EntryLimit,
		Price: d("95"),
	})
	require.NoError(t, err)
	s.TrailingStop = &strategy.TrailingStopConfig{TrailPercent: d("5")}

	// The limit never trades; the run ends with the entry resting.
	bars := []market.Bar{
		bar("100", "101", "99", "100"),
		bar("100", "102", "98", "101"),
	}

	res, rerr := NewEngine(nil).Run(context.Background(), s, bars, d("100000"))
	require.NoError(t, rerr)

	assert.Equal(t, strategy.EntryActive, res.FinalPhase)
	assert.Empty(t, res.Fills)
	assert.Zero(t, res.Trades)
	assert.True(t, res.FinalEquity.Equal(d("100000")))
}

func TestRunValidatesInputs(t *testing.T) {
	t.Parallel()

	eng := NewEngine(nil)
	strat := trailingStrategy(t)

	_, err := eng.Run(context.Background(), strat, nil, d("100000"))
	assert.Error(t, err, "empty bar series")

	_, err = eng.Run(context.Background(), strat, []market.Bar{bar("100", "101", "99", "100")}, decimal.Zero)
	assert.Error(t, err, "zero capital")
}
