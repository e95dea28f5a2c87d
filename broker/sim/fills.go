package sim

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/broker"
	"github.com/rustyeddy/stratengine/market"
)

var hundred = decimal.NewFromInt(100)

// settleBarLocked applies one bar to the symbol's resting orders.
// Rules, by order type:
//
//	LIMIT buy      bar.Low  <= limit  -> fills at limit
//	LIMIT sell     bar.High >= limit  -> fills at limit
//	STOP buy       bar.High >= stop   -> fills at stop
//	STOP sell      bar.Low  <= stop   -> fills at stop
//	TRAILING sell  watermark = max(watermark, bar.High);
//	               trigger = watermark*(1-trail/100);
//	               bar.Low <= trigger -> fills at trigger
//
// Only the first triggered order fills; remaining resting orders wait
// for the next bar, which models one-cancels-other behavior for
// same-symbol resting orders.
func (e *Engine) settleBarLocked(symbol string, bar market.Bar) {
	filled := false
	for _, o := range e.orders {
		if o.Symbol != symbol || o.Status != broker.StatusSubmitted || o.Type == broker.Market {
			continue
		}

		// Trailing watermarks ratchet on every bar, even on bars
		// where another order already filled.
		if o.Type == broker.TrailingStop && bar.High.GreaterThan(o.watermark) {
			o.watermark = bar.High
		}

		if filled {
			continue
		}
		if price, ok := fillPrice(o, bar); ok {
			e.fillLocked(o, price)
			filled = true
		}
	}
}

func fillPrice(o *simOrder, bar market.Bar) (decimal.Decimal, bool) {
	switch o.Type {
	case broker.Limit:
		if o.Side == broker.Buy && bar.Low.LessThanOrEqual(o.LimitPrice) {
			return o.LimitPrice, true
		}
		if o.Side == broker.Sell && bar.High.GreaterThanOrEqual(o.LimitPrice) {
			return o.LimitPrice, true
		}
	case broker.Stop:
		if o.Side == broker.Buy && bar.High.GreaterThanOrEqual(o.StopPrice) {
			return o.StopPrice, true
		}
		if o.Side == broker.Sell && bar.Low.LessThanOrEqual(o.StopPrice) {
			return o.StopPrice, true
		}
	case broker.TrailingStop:
		if o.Side != broker.Sell {
			return decimal.Zero, false
		}
		trigger := o.watermark.Mul(decimal.NewFromInt(1).Sub(o.TrailPercent.Div(hundred)))
		if bar.Low.LessThanOrEqual(trigger) {
			return trigger, true
		}
	}
	return decimal.Zero, false
}

// fillLocked executes the order at price: cash moves by price*qty,
// average cost is volume-weighted on size-increasing fills and
// untouched on reductions, and the position is dropped at zero.
func (e *Engine) fillLocked(o *simOrder, price decimal.Decimal) {
	o.Status = broker.StatusFilled
	o.FilledQty = o.Qty
	o.FilledAvgPrice = price

	total := price.Mul(o.Qty)
	pos := e.positions[o.Symbol]

	if o.Side == broker.Buy {
		e.cash = e.cash.Sub(total)
		if pos == nil {
			e.positions[o.Symbol] = &position{qty: o.Qty, avgCost: price}
		} else {
			newQty := pos.qty.Add(o.Qty)
			pos.avgCost = pos.avgCost.Mul(pos.qty).Add(total).Div(newQty)
			pos.qty = newQty
		}
	} else {
		e.cash = e.cash.Add(total)
		if pos != nil {
			pos.qty = pos.qty.Sub(o.Qty)
			if pos.qty.Sign() <= 0 {
				delete(e.positions, o.Symbol)
			}
		}
	}

	e.fills = append(e.fills, Fill{
		OrderID: o.ID,
		Symbol:  o.Symbol,
		Side:    o.Side,
		Qty:     o.Qty,
		Price:   price,
		BarTime: e.cursor[o.Symbol],
	})
}
