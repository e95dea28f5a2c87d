// Package safety is the admission control gating every order before
// it reaches the broker. Checks run in a fixed order and the first
// failure short-circuits with its specific reason; a denial is always
// surfaced, never silently dropped.
package safety

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/broker"
	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/monitoring"
	"github.com/rustyeddy/stratengine/orders"
)

// Limits configures the checks. A zero limit disables that check.
type Limits struct {
	KillSwitch       bool            `json:"kill_switch" yaml:"kill_switch"`
	MaxDailyLoss     decimal.Decimal `json:"max_daily_loss" yaml:"max_daily_loss"`
	MaxDailyTrades   int             `json:"max_daily_trades" yaml:"max_daily_trades"`
	MaxOrderValue    decimal.Decimal `json:"max_order_value" yaml:"max_order_value"`
	MaxPositionSize  decimal.Decimal `json:"max_position_size" yaml:"max_position_size"`
	MaxPositionValue decimal.Decimal `json:"max_position_value" yaml:"max_position_value"`
}

// AccountView is the broker slice the checker reads. broker.Broker
// satisfies it.
type AccountView interface {
	GetAccount(ctx context.Context) (broker.Account, error)
	GetPosition(ctx context.Context, symbol string) (*broker.Position, error)
	GetQuote(ctx context.Context, symbol string) (market.Quote, error)
}

// DailyStats is the ledger slice backing the daily-limit checks.
type DailyStats interface {
	RealizedPnLToday() (decimal.Decimal, error)
	TradeCountToday() (int, error)
}

// PendingOrders exposes local NEW/SUBMITTED orders. They must count
// against every later check because the broker's live view can lag
// client-resting limit and stop orders.
type PendingOrders interface {
	PendingForSymbol(symbol string) ([]*orders.Order, error)
}

type Checker struct {
	Limits  Limits
	Account AccountView
	Ledger  DailyStats
	Pending PendingOrders
}

func NewChecker(limits Limits, acct AccountView, ledger DailyStats, pending PendingOrders) *Checker {
	return &Checker{Limits: limits, Account: acct, Ledger: ledger, Pending: pending}
}

// CheckOrder reports whether the order may be submitted. A false
// result always carries the denial reason.
func (c *Checker) CheckOrder(ctx context.Context, symbol string, qty, price decimal.Decimal, isBuy bool) (bool, string, error) {
	if c.Limits.KillSwitch {
		return c.deny("kill_switch", "kill switch active")
	}

	if c.Limits.MaxDailyLoss.Sign() > 0 {
		pnl, err := c.Ledger.RealizedPnLToday()
		if err != nil {
			return false, "", err
		}
		if pnl.LessThan(c.Limits.MaxDailyLoss.Neg()) {
			return c.deny("daily_loss",
				fmt.Sprintf("daily loss limit reached: realized %s, limit -%s", pnl, c.Limits.MaxDailyLoss))
		}
	}

	if c.Limits.MaxDailyTrades > 0 {
		n, err := c.Ledger.TradeCountToday()
		if err != nil {
			return false, "", err
		}
		if n >= c.Limits.MaxDailyTrades {
			return c.deny("daily_trades",
				fmt.Sprintf("daily trade limit reached: %d of %d", n, c.Limits.MaxDailyTrades))
		}
	}

	orderValue := qty.Mul(price)
	if c.Limits.MaxOrderValue.Sign() > 0 && orderValue.GreaterThan(c.Limits.MaxOrderValue) {
		return c.deny("order_value",
			fmt.Sprintf("order value %s exceeds max %s", orderValue, c.Limits.MaxOrderValue))
	}

	pendingBuyQty, pendingBuyValue, _, err := c.pendingExposure(ctx, symbol)
	if err != nil {
		return false, "", err
	}

	if !isBuy {
		return true, "", nil
	}

	var positionQty, positionValue decimal.Decimal
	pos, err := c.Account.GetPosition(ctx, symbol)
	if err != nil {
		return false, "", err
	}
	if pos != nil {
		positionQty = pos.Qty
		positionValue = pos.MarketValue
	}

	if c.Limits.MaxPositionSize.Sign() > 0 {
		projected := positionQty.Add(qty).Add(pendingBuyQty)
		if projected.GreaterThan(c.Limits.MaxPositionSize) {
			return c.deny("position_size",
				fmt.Sprintf("would exceed position size limit: %s + %s + %s pending > %s",
					positionQty, qty, pendingBuyQty, c.Limits.MaxPositionSize))
		}
	}

	if c.Limits.MaxPositionValue.Sign() > 0 {
		projected := positionValue.Add(orderValue).Add(pendingBuyValue)
		if projected.GreaterThan(c.Limits.MaxPositionValue) {
			return c.deny("position_value",
				fmt.Sprintf("would exceed position value limit: %s > %s",
					projected, c.Limits.MaxPositionValue))
		}
	}

	acct, err := c.Account.GetAccount(ctx)
	if err != nil {
		return false, "", err
	}
	available := acct.BuyingPower.Sub(pendingBuyValue)
	if orderValue.GreaterThan(available) {
		return c.deny("buying_power",
			fmt.Sprintf("insufficient buying power: order value %s > available %s (%s less %s reserved)",
				orderValue, available, acct.BuyingPower, pendingBuyValue))
	}

	return true, "", nil
}

func (c *Checker) deny(check, reason string) (bool, string, error) {
	monitoring.RecordSafetyDenial(check)
	return false, reason, nil
}

// pendingExposure aggregates local NEW/SUBMITTED orders for the
// symbol. Unpriced pendings (market orders) are valued at a midpoint
// quote fetched once and reused for the whole pass.
func (c *Checker) pendingExposure(ctx context.Context, symbol string) (buyQty, buyValue, sellQty decimal.Decimal, err error) {
	pending, err := c.Pending.PendingForSymbol(symbol)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}

	var mid decimal.Decimal
	haveMid := false
	for _, o := range pending {
		switch o.Side {
		case broker.Buy:
			buyQty = buyQty.Add(o.Qty)
			px := o.LimitPrice
			if px.Sign() <= 0 {
				if !haveMid {
					q, qerr := c.Account.GetQuote(ctx, symbol)
					if qerr != nil {
						return decimal.Zero, decimal.Zero, decimal.Zero, qerr
					}
					mid = q.Mid()
					haveMid = true
				}
				px = mid
			}
			buyValue = buyValue.Add(o.Qty.Mul(px))
		case broker.Sell:
			sellQty = sellQty.Add(o.Qty)
		}
	}
	return buyQty, buyValue, sellQty, nil
}
