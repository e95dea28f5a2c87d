package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/broker"
)

// Match is one FIFO-matched buy/sell pairing: Qty shares bought at
// BuyPrice and later sold at SellPrice.
type Match struct {
	Qty       decimal.Decimal
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	PnL       decimal.Decimal
}

// Lot is an unmatched remainder of a buy.
type Lot struct {
	Qty   decimal.Decimal
	Price decimal.Decimal
}

// MatchFIFO pairs sells against the oldest open buy lots, in record
// order, and returns the realized matches plus any lots still open.
// Partial lots split: a 12-share sell against lots of 10 and 5 matches
// 10 from the first and 2 from the second, leaving 3 open.
func MatchFIFO(trades []TradeRecord) ([]Match, []Lot) {
	var matches []Match
	var open []Lot

	for _, t := range trades {
		switch t.Side {
		case broker.Buy:
			open = append(open, Lot{Qty: t.Qty, Price: t.Price})
		case broker.Sell:
			remaining := t.Qty
			for remaining.Sign() > 0 && len(open) > 0 {
				lot := &open[0]
				take := decimal.Min(remaining, lot.Qty)

				matches = append(matches, Match{
					Qty:       take,
					BuyPrice:  lot.Price,
					SellPrice: t.Price,
					PnL:       t.Price.Sub(lot.Price).Mul(take),
				})

				lot.Qty = lot.Qty.Sub(take)
				remaining = remaining.Sub(take)
				if lot.Qty.Sign() == 0 {
					open = open[1:]
				}
			}
			// A sell with no open lot is a short; the ledger carries
			// it but FIFO matching ignores the excess.
		}
	}
	return matches, open
}
