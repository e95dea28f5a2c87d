// Package sim is the deterministic bar-replay fill engine used by
// backtests. It implements broker.Broker; fills are decided from the
// current bar only, never from future data. State is scoped to one run
// and discarded once metrics are produced.
package sim

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/broker"
	"github.com/rustyeddy/stratengine/errs"
	"github.com/rustyeddy/stratengine/internal/id"
	"github.com/rustyeddy/stratengine/market"
)

type Engine struct {
	mu        sync.Mutex
	cash      decimal.Decimal
	bars      map[string]market.Bar // current bar per symbol
	cursor    map[string]int        // bars consumed per symbol
	positions map[string]*position
	orders    []*simOrder // creation order preserved for fill tie-breaks
	byID      map[string]*simOrder
	fills     []Fill
}

type position struct {
	qty     decimal.Decimal
	avgCost decimal.Decimal
}

type simOrder struct {
	broker.Order
	watermark decimal.Decimal // trailing-stop high watermark
}

// Fill records one executed order for the run's metrics reduction.
type Fill struct {
	OrderID string
	Symbol  string
	Side    broker.Side
	Qty     decimal.Decimal
	Price   decimal.Decimal
	BarTime int // cursor value at fill time
}

func NewEngine(initialCash decimal.Decimal) *Engine {
	return &Engine{
		cash:      initialCash,
		bars:      make(map[string]market.Bar),
		cursor:    make(map[string]int),
		positions: make(map[string]*position),
		byID:      make(map[string]*simOrder),
	}
}

// SetBar advances the symbol's cursor by one bar and settles resting
// orders against it. At most one resting order fills per symbol per
// bar, ties broken by order-creation order.
func (e *Engine) SetBar(symbol string, bar market.Bar) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.bars[symbol] = bar
	e.cursor[symbol]++
	e.settleBarLocked(symbol, bar)
}

// Fills returns every executed fill in execution order.
func (e *Engine) Fills() []Fill {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Fill, len(e.fills))
	copy(out, e.fills)
	return out
}

// Equity returns cash plus open positions marked at each symbol's
// current bar close.
func (e *Engine) Equity() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.equityLocked()
}

func (e *Engine) equityLocked() decimal.Decimal {
	eq := e.cash
	for sym, pos := range e.positions {
		if bar, ok := e.bars[sym]; ok {
			eq = eq.Add(pos.qty.Mul(bar.Close))
		} else {
			eq = eq.Add(pos.qty.Mul(pos.avgCost))
		}
	}
	return eq
}

func (e *Engine) GetAccount(ctx context.Context) (broker.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	eq := e.equityLocked()
	return broker.Account{
		Cash:           e.cash,
		BuyingPower:    e.cash,
		Equity:         eq,
		PortfolioValue: eq,
	}, nil
}

func (e *Engine) GetPosition(ctx context.Context, symbol string) (*broker.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[symbol]
	if !ok {
		return nil, nil
	}
	p := &broker.Position{
		Symbol:  symbol,
		Qty:     pos.qty,
		AvgCost: pos.avgCost,
	}
	if bar, ok := e.bars[symbol]; ok {
		p.MarketValue = pos.qty.Mul(bar.Close)
		p.UnrealizedPL = p.MarketValue.Sub(pos.qty.Mul(pos.avgCost))
	}
	return p, nil
}

func (e *Engine) GetQuote(ctx context.Context, symbol string) (market.Quote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	bar, ok := e.bars[symbol]
	if !ok {
		return market.Quote{}, errs.NotFound("quote", symbol)
	}
	return market.Quote{
		Symbol: symbol,
		Bid:    bar.Close,
		Ask:    bar.Close,
		Last:   bar.Close,
		Volume: bar.Volume,
		Time:   bar.Time,
	}, nil
}

func (e *Engine) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Qty.Sign() <= 0 {
		return broker.Order{}, errs.Validation("order qty must be positive, got %s", req.Qty)
	}

	o := &simOrder{Order: broker.Order{
		ID:           id.New(),
		Symbol:       req.Symbol,
		Qty:          req.Qty,
		Side:         req.Side,
		Type:         req.Type,
		LimitPrice:   req.LimitPrice,
		StopPrice:    req.StopPrice,
		TrailPercent: req.TrailPercent,
		Status:       broker.StatusSubmitted,
	}}

	if req.Type == broker.Market {
		bar, ok := e.bars[req.Symbol]
		if !ok {
			return broker.Order{}, errs.Validation("no bar data for %s", req.Symbol)
		}
		e.fillLocked(o, bar.Close)
	} else if req.Type == broker.TrailingStop {
		// Watermark seeds from the current close so the trigger
		// ratchets only from placement forward.
		if bar, ok := e.bars[req.Symbol]; ok {
			o.watermark = bar.Close
		}
	}

	e.orders = append(e.orders, o)
	e.byID[o.ID] = o
	return o.Order, nil
}

func (e *Engine) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.byID[orderID]
	if !ok || o.Status.IsTerminal() {
		return false, nil
	}
	o.Status = broker.StatusCanceled
	return true, nil
}

func (e *Engine) GetOrder(ctx context.Context, orderID string) (*broker.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.byID[orderID]
	if !ok {
		return nil, nil
	}
	cp := o.Order
	return &cp, nil
}

func (e *Engine) GetOrders(ctx context.Context, status broker.OrderStatus) ([]broker.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []broker.Order
	for _, o := range e.orders {
		if status == broker.StatusAny || o.Status == status {
			out = append(out, o.Order)
		}
	}
	return out, nil
}

// IsMarketOpen always reports open: replayed bars are the market.
func (e *Engine) IsMarketOpen(ctx context.Context) (bool, error) {
	return true, nil
}
