// Package market holds the quote and bar types shared by the live and
// backtest paths. All prices are fixed-precision decimals; float64 is
// never used for money.
package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time view of a symbol's market.
type Quote struct {
	Symbol string
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	Last   decimal.Decimal
	Volume int64
	Time   time.Time
}

var two = decimal.NewFromInt(2)

// Mid returns the bid/ask midpoint, falling back to Last when either
// side of the book is empty.
func (q Quote) Mid() decimal.Decimal {
	if q.Bid.IsZero() || q.Ask.IsZero() {
		return q.Last
	}
	return q.Bid.Add(q.Ask).Div(two)
}

// Bar is one OHLCV sample for a symbol at a timestamp.
type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}
