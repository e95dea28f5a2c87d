// Package broker specifies the capability the execution engines
// consume. Network adapters (Alpaca, IBKR, ...) live outside this
// module; the simulated fill engine in broker/sim implements the same
// interface for backtests.
package broker

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/market"
)

type Broker interface {
	GetAccount(ctx context.Context) (Account, error)
	GetPosition(ctx context.Context, symbol string) (*Position, error)
	GetQuote(ctx context.Context, symbol string) (market.Quote, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (Order, error)
	CancelOrder(ctx context.Context, id string) (bool, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	GetOrders(ctx context.Context, status OrderStatus) ([]Order, error)
	IsMarketOpen(ctx context.Context) (bool, error)
}

type Account struct {
	Cash           decimal.Decimal
	BuyingPower    decimal.Decimal
	Equity         decimal.Decimal
	PortfolioValue decimal.Decimal
	DaytradeCount  int
}

type Position struct {
	Symbol       string
	Qty          decimal.Decimal
	AvgCost      decimal.Decimal
	MarketValue  decimal.Decimal
	UnrealizedPL decimal.Decimal
}

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

type OrderType string

const (
	Market       OrderType = "market"
	Limit        OrderType = "limit"
	Stop         OrderType = "stop"
	TrailingStop OrderType = "trailing_stop"
)

type OrderStatus string

const (
	StatusAny             OrderStatus = ""
	StatusNew             OrderStatus = "new"
	StatusSubmitted       OrderStatus = "submitted"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCanceled        OrderStatus = "canceled"
	StatusRejected        OrderStatus = "rejected"
	StatusExpired         OrderStatus = "expired"
)

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusRejected, StatusExpired:
		return true
	}
	return false
}

type OrderRequest struct {
	Symbol       string
	Qty          decimal.Decimal
	Side         Side
	Type         OrderType
	LimitPrice   decimal.Decimal // limit orders
	StopPrice    decimal.Decimal // stop orders
	TrailPercent decimal.Decimal // trailing-stop orders
}

// Order is the broker's view of an order. ID is broker-assigned.
type Order struct {
	ID             string
	Symbol         string
	Qty            decimal.Decimal
	Side           Side
	Type           OrderType
	LimitPrice     decimal.Decimal
	StopPrice      decimal.Decimal
	TrailPercent   decimal.Decimal
	Status         OrderStatus
	FilledQty      decimal.Decimal
	FilledAvgPrice decimal.Decimal
}
