package engine

import (
	"context"

	"github.com/rustyeddy/stratengine/broker"
	"github.com/rustyeddy/stratengine/market"
)

// BrokerView adapts a broker for the evaluator. Strategies hold local
// order ids; the broker only knows the ids it assigned. GetOrder
// resolves a local id to its external id through the order store
// before asking the broker, falling back to a direct lookup for ids
// the store has never seen.
type BrokerView struct {
	Broker broker.Broker
	Orders OrderStore
}

func (v *BrokerView) GetQuote(ctx context.Context, symbol string) (market.Quote, error) {
	return v.Broker.GetQuote(ctx, symbol)
}

func (v *BrokerView) GetOrder(ctx context.Context, id string) (*broker.Order, error) {
	local, err := v.Orders.Get(id)
	if err != nil {
		return v.Broker.GetOrder(ctx, id)
	}
	lookup := local.ExternalID
	if lookup == "" {
		lookup = local.ID
	}
	return v.Broker.GetOrder(ctx, lookup)
}
