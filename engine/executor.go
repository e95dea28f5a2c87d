package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/broker"
	"github.com/rustyeddy/stratengine/errs"
	"github.com/rustyeddy/stratengine/ledger"
	"github.com/rustyeddy/stratengine/monitoring"
	"github.com/rustyeddy/stratengine/orders"
	"github.com/rustyeddy/stratengine/strategy"
)

// StrategyStore is the slice of the strategy store the executor
// needs. *strategy.Store satisfies it.
type StrategyStore interface {
	Get(id string) (*strategy.Strategy, error)
	Update(s *strategy.Strategy) error
}

// OrderStore is the slice of the order store the executor needs.
// *orders.Store satisfies it.
type OrderStore interface {
	Get(id string) (*orders.Order, error)
	Upsert(o *orders.Order) error
}

// Ledger receives one row per fill. *ledger.SQLite satisfies it.
type Ledger interface {
	Append(ledger.TradeRecord) error
}

// Auditor receives the safety-relevant action trail. *audit.Trail
// satisfies it.
type Auditor interface {
	Record(action, detail string) error
}

// AdmissionChecker gates order submission. *safety.Checker satisfies
// it; a nil checker (backtests) admits everything.
type AdmissionChecker interface {
	CheckOrder(ctx context.Context, symbol string, qty, price decimal.Decimal, isBuy bool) (bool, string, error)
}

// Executor applies evaluator actions. It is the single action path
// shared by the live poll loop and the backtest bar driver, which is
// what keeps the two in lockstep: mutate, call the broker, then
// persist. Persisting after the broker call means a crash between the
// two is the reconciliation hazard the startup pass exists for.
type Executor struct {
	Broker     broker.Broker
	Strategies StrategyStore
	Orders     OrderStore
	Ledger     Ledger
	Audit      Auditor
	Safety     AdmissionChecker
	Log        *slog.Logger
}

// Apply executes one action and persists the outcome.
func (x *Executor) Apply(ctx context.Context, act strategy.Action) error {
	monitoring.RecordAction(string(act.Kind))

	s, err := x.Strategies.Get(act.StrategyID)
	if err != nil {
		return err
	}

	switch act.Kind {
	case strategy.PlaceEntry:
		return x.placeOrder(ctx, s, act, true)
	case strategy.PlaceExit:
		return x.placeOrder(ctx, s, act, false)
	case strategy.UpdateState:
		return x.updateState(ctx, s, act)
	case strategy.Complete:
		return x.complete(ctx, s, act)
	case strategy.Fail:
		return x.fail(s, act.Note)
	}
	return nil
}

func (x *Executor) placeOrder(ctx context.Context, s *strategy.Strategy, act strategy.Action, entry bool) error {
	req := act.Order

	if x.Safety != nil {
		price := req.LimitPrice
		if price.Sign() <= 0 {
			q, err := x.Broker.GetQuote(ctx, req.Symbol)
			if err != nil {
				return errs.Broker("get_quote", err)
			}
			price = q.Mid()
		}
		ok, reason, err := x.Safety.CheckOrder(ctx, req.Symbol, req.Qty, price, req.Side == broker.Buy)
		if err != nil {
			return err
		}
		if !ok {
			x.audit("safety_denied", fmt.Sprintf("strategy %s: %s", s.ID, reason))
			if ferr := x.fail(s, "order denied by safety check: "+reason); ferr != nil {
				return ferr
			}
			return errs.Safety(reason)
		}
	}

	local := orders.NewOrder(req, s.ID)

	placed, err := x.Broker.PlaceOrder(ctx, req)
	if err != nil {
		return errs.Broker("place_order", err)
	}

	// Broker accepted: record the execution fact, then the strategy.
	local.ExternalID = placed.ID
	local.Status = orders.Submitted
	if placed.Status == broker.StatusFilled {
		local.Status = orders.Filled
		local.FillPrice = placed.FilledAvgPrice
	}
	if err := x.Orders.Upsert(local); err != nil {
		return err
	}

	if entry {
		s.EntryOrderID = local.ID
		if err := s.Transition(strategy.EntryActive); err != nil {
			return err
		}
	} else {
		s.ExitOrderIDs = append(s.ExitOrderIDs, local.ID)
		if err := s.Transition(strategy.Exiting); err != nil {
			return err
		}
	}
	if err := x.Strategies.Update(s); err != nil {
		return err
	}

	x.audit("order_placed", fmt.Sprintf("strategy %s: %s %s %s %s (local %s, broker %s)",
		s.ID, req.Side, req.Qty, req.Symbol, req.Type, local.ID, placed.ID))
	return nil
}

func (x *Executor) updateState(ctx context.Context, s *strategy.Strategy, act strategy.Action) error {
	entryJustFilled := act.Phase == strategy.PositionOpen && s.Phase == strategy.EntryActive

	if act.Phase != s.Phase {
		if err := s.Transition(act.Phase); err != nil {
			return err
		}
	}
	if act.EntryFillPrice.Sign() > 0 {
		s.EntryFillPrice = act.EntryFillPrice
	}
	if act.HighWatermark.GreaterThan(s.HighWatermark) {
		s.HighWatermark = act.HighWatermark
	}
	if err := x.Strategies.Update(s); err != nil {
		return err
	}

	if entryJustFilled {
		return x.recordFill(ctx, s, s.EntryOrderID, broker.Buy, act.EntryFillPrice)
	}
	return nil
}

func (x *Executor) complete(ctx context.Context, s *strategy.Strategy, act strategy.Action) error {
	// Ledger the filled exit leg before closing out the strategy.
	for _, exitID := range s.ExitOrderIDs {
		local, err := x.Orders.Get(exitID)
		if err != nil {
			continue
		}
		lookupID := local.ExternalID
		if lookupID == "" {
			lookupID = local.ID
		}
		remote, err := x.Broker.GetOrder(ctx, lookupID)
		if err != nil || remote == nil || remote.Status != broker.StatusFilled {
			continue
		}
		local.Status = orders.Filled
		local.FillPrice = remote.FilledAvgPrice
		if err := x.Orders.Upsert(local); err != nil {
			return err
		}
		if err := x.appendLedger(local, broker.Sell, remote.FilledAvgPrice, s.ID); err != nil {
			return err
		}
		break
	}

	if err := s.Transition(strategy.Completed); err != nil {
		return err
	}
	s.Notes = appendNote(s.Notes, act.Note)
	return x.Strategies.Update(s)
}

func (x *Executor) fail(s *strategy.Strategy, note string) error {
	if err := s.Transition(strategy.Failed); err != nil {
		return err
	}
	s.Notes = appendNote(s.Notes, note)
	if err := x.Strategies.Update(s); err != nil {
		return err
	}
	x.audit("strategy_failed", fmt.Sprintf("strategy %s: %s", s.ID, note))
	return nil
}

// recordFill marks the local order filled and appends the ledger row.
func (x *Executor) recordFill(ctx context.Context, s *strategy.Strategy, orderID string, side broker.Side, price decimal.Decimal) error {
	local, err := x.Orders.Get(orderID)
	if err != nil {
		// The order record is a weak reference; a missing row still
		// gets its fill into the ledger.
		x.Log.Warn("fill for unknown local order", "order_id", orderID, "err", err)
		return x.Ledger.Append(ledger.NewTradeRecord(orderID, s.Symbol, side, s.Qty, price, s.ID))
	}
	local.Status = orders.Filled
	local.FillPrice = price
	if err := x.Orders.Upsert(local); err != nil {
		return err
	}
	return x.appendLedger(local, side, price, s.ID)
}

func (x *Executor) appendLedger(o *orders.Order, side broker.Side, price decimal.Decimal, strategyID string) error {
	return x.Ledger.Append(ledger.NewTradeRecord(o.ID, o.Symbol, side, o.Qty, price, strategyID))
}

func (x *Executor) audit(action, detail string) {
	if x.Audit == nil {
		return
	}
	if err := x.Audit.Record(action, detail); err != nil {
		x.Log.Warn("audit append failed", "action", action, "err", err)
	}
}

func appendNote(existing, note string) string {
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
