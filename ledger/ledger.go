// Package ledger is the immutable trade ledger: append-only rows, one
// per fill, backing realized P&L and the daily-limit accounting the
// safety checks consume. Rows are never mutated after insert.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/broker"
	"github.com/rustyeddy/stratengine/internal/id"
)

// TradeRecord is one executed fill.
type TradeRecord struct {
	ID         string
	OrderID    string
	Symbol     string
	Side       broker.Side
	Qty        decimal.Decimal
	Price      decimal.Decimal
	Total      decimal.Decimal
	Status     string
	StrategyID string
	CreatedAt  time.Time
}

// NewTradeRecord stamps a ledger row for a fill. Total is qty*price,
// computed here once so every consumer sees the same figure.
func NewTradeRecord(orderID, symbol string, side broker.Side, qty, price decimal.Decimal, strategyID string) TradeRecord {
	return TradeRecord{
		ID:         id.New(),
		OrderID:    orderID,
		Symbol:     symbol,
		Side:       side,
		Qty:        qty,
		Price:      price,
		Total:      qty.Mul(price),
		Status:     "filled",
		StrategyID: strategyID,
		CreatedAt:  time.Now().UTC(),
	}
}
