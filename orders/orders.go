// Package orders persists the local view of broker orders. Orders are
// the system of record for execution facts: strategies reference them
// by id but never own them, and the records outlive the strategy that
// created them.
package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/broker"
	"github.com/rustyeddy/stratengine/internal/id"
)

type Status string

const (
	New       Status = "NEW"
	Submitted Status = "SUBMITTED"
	Filled    Status = "FILLED"
	Canceled  Status = "CANCELED"
)

func (s Status) IsTerminal() bool {
	return s == Filled || s == Canceled
}

// Order is the locally persisted record. ExternalID is broker-assigned
// and only present after submission, which is why store writes merge
// on either id (see Store.Upsert).
type Order struct {
	ID         string           `json:"id"`
	ExternalID string           `json:"external_id,omitempty"`
	Symbol     string           `json:"symbol"`
	Side       broker.Side      `json:"side"`
	Qty        decimal.Decimal  `json:"qty"`
	Type       broker.OrderType `json:"type"`
	LimitPrice decimal.Decimal  `json:"limit_price,omitempty"`
	Status     Status           `json:"status"`
	FillPrice  decimal.Decimal  `json:"fill_price,omitempty"`
	StrategyID string           `json:"strategy_id,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// NewOrder builds a NEW local record for a request about to be sent to
// the broker.
func NewOrder(req broker.OrderRequest, strategyID string) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:         id.New(),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Qty:        req.Qty,
		Type:       req.Type,
		LimitPrice: req.LimitPrice,
		Status:     New,
		StrategyID: strategyID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// fromBrokerStatus maps the broker's richer status set onto the local
// record's four states.
func fromBrokerStatus(s broker.OrderStatus) Status {
	switch s {
	case broker.StatusFilled:
		return Filled
	case broker.StatusCanceled, broker.StatusRejected, broker.StatusExpired:
		return Canceled
	case broker.StatusNew:
		return New
	default:
		return Submitted
	}
}
