package backtest

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/ledger"
)

// reduceMetrics fills in the derived performance numbers on a
// finished result. Money stays decimal; ratios are float64.
func reduceMetrics(res *Result, rows []ledger.TradeRecord) {
	res.TotalReturnPct = decimal.Zero
	if res.InitialCapital.Sign() > 0 {
		res.TotalReturnPct = res.FinalEquity.Sub(res.InitialCapital).
			Div(res.InitialCapital).
			Mul(decimal.NewFromInt(100))
	}

	res.MaxDrawdown = maxDrawdown(res.EquityCurve)

	matches, _ := ledger.MatchFIFO(rows)
	res.Trades = len(matches)
	if len(matches) == 0 {
		return
	}

	wins := 0
	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	for _, m := range matches {
		switch m.PnL.Sign() {
		case 1:
			wins++
			grossProfit = grossProfit.Add(m.PnL)
		case -1:
			grossLoss = grossLoss.Add(m.PnL.Neg())
		}
	}

	res.WinRate = float64(wins) / float64(len(matches)) * 100

	// With no losing trades the ratio is undefined and the field stays
	// nil, which also keeps the result JSON-encodable; an infinity
	// sentinel would fail json.Marshal on save.
	if grossLoss.Sign() > 0 {
		pf, _ := grossProfit.Div(grossLoss).Float64()
		res.ProfitFactor = &pf
	}
}

// maxDrawdown is the largest peak-to-trough equity drop, in account
// currency.
func maxDrawdown(curve []decimal.Decimal) decimal.Decimal {
	dd := decimal.Zero
	if len(curve) == 0 {
		return dd
	}
	peak := curve[0]
	for _, eq := range curve[1:] {
		if eq.GreaterThan(peak) {
			peak = eq
			continue
		}
		if drop := peak.Sub(eq); drop.GreaterThan(dd) {
			dd = drop
		}
	}
	return dd
}
