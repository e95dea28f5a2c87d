package backtest

import (
	"github.com/rustyeddy/stratengine/errs"
	"github.com/rustyeddy/stratengine/ledger"
	"github.com/rustyeddy/stratengine/orders"
	"github.com/rustyeddy/stratengine/strategy"
)

// In-memory store shims for the executor. A backtest owns exactly one
// strategy and never shares it across goroutines, so there is no
// locking and nothing to persist.

type memStrategies struct {
	s *strategy.Strategy
}

func (m *memStrategies) Get(id string) (*strategy.Strategy, error) {
	if m.s == nil || m.s.ID != id {
		return nil, errs.NotFound("strategy", id)
	}
	return m.s, nil
}

func (m *memStrategies) Update(s *strategy.Strategy) error {
	m.s = s
	return nil
}

type memOrders struct {
	list []*orders.Order
}

func (m *memOrders) Get(id string) (*orders.Order, error) {
	for _, o := range m.list {
		if o.ID == id || o.ExternalID == id {
			return o, nil
		}
	}
	return nil, errs.NotFound("order", id)
}

func (m *memOrders) Upsert(o *orders.Order) error {
	for i, ex := range m.list {
		if ex.ID == o.ID {
			m.list[i] = o
			return nil
		}
	}
	m.list = append(m.list, o)
	return nil
}

type memLedger struct {
	rows []ledger.TradeRecord
}

func (m *memLedger) Append(r ledger.TradeRecord) error {
	m.rows = append(m.rows, r)
	return nil
}
