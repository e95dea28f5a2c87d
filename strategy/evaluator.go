package strategy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/broker"
	"github.com/rustyeddy/stratengine/market"
)

// MarketView is the read-only slice of the broker capability the
// evaluator consumes. broker.Broker satisfies it.
type MarketView interface {
	GetQuote(ctx context.Context, symbol string) (market.Quote, error)
	GetOrder(ctx context.Context, id string) (*broker.Order, error)
}

type ActionKind string

const (
	PlaceEntry  ActionKind = "place_entry"
	PlaceExit   ActionKind = "place_exit"
	UpdateState ActionKind = "update_state"
	Complete    ActionKind = "complete"
	Fail        ActionKind = "fail"
)

// Action is one instruction emitted by the evaluator and applied by an
// execution engine. Kind selects which payload fields are meaningful.
type Action struct {
	Kind       ActionKind
	StrategyID string

	// PlaceEntry / PlaceExit
	Order broker.OrderRequest

	// UpdateState
	Phase          Phase
	EntryFillPrice decimal.Decimal
	HighWatermark  decimal.Decimal

	// Complete / Fail
	Note string
}

// Evaluator is the pure decision function: identical strategy state
// and market view yield identical actions, which is what keeps live
// polling and bar replay in lockstep. It never mutates a strategy and
// never errors on ordinary "nothing to do yet" conditions.
type Evaluator struct {
	Market MarketView
}

func NewEvaluator(view MarketView) *Evaluator {
	return &Evaluator{Market: view}
}

// Evaluate inspects every strategy and returns the actions to apply.
// Disabled, paused, and terminal strategies yield no actions.
func (ev *Evaluator) Evaluate(ctx context.Context, strategies []*Strategy) ([]Action, error) {
	var actions []Action
	for _, s := range strategies {
		if !s.Enabled || s.Phase.IsTerminal() || s.Phase == Paused {
			continue
		}
		acts, err := ev.evaluateOne(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("evaluate strategy %s: %w", s.ID, err)
		}
		actions = append(actions, acts...)
	}
	return actions, nil
}

func (ev *Evaluator) evaluateOne(ctx context.Context, s *Strategy) ([]Action, error) {
	switch s.Phase {
	case Pending:
		return ev.evaluatePending(ctx, s)
	case EntryActive:
		return ev.evaluateEntryActive(ctx, s)
	case PositionOpen:
		return ev.evaluatePositionOpen(ctx, s)
	case Exiting:
		return ev.evaluateExiting(ctx, s)
	}
	return nil, nil
}

func (ev *Evaluator) evaluatePending(ctx context.Context, s *Strategy) ([]Action, error) {
	entry := broker.OrderRequest{
		Symbol: s.Symbol,
		Qty:    s.Qty,
		Side:   broker.Buy,
		Type:   broker.Market,
	}

	switch s.Entry.Type {
	case EntryMarket:
		// Immediate market entry.
	case EntryLimit:
		entry.Type = broker.Limit
		entry.LimitPrice = s.Entry.Price
	case EntryCondition:
		op, threshold, err := ParseCondition(s.Entry.Condition)
		if err != nil {
			return []Action{{Kind: Fail, StrategyID: s.ID, Note: err.Error()}}, nil
		}
		q, err := ev.Market.GetQuote(ctx, s.Symbol)
		if err != nil {
			return nil, err
		}
		if !op.Holds(q.Mid(), threshold) {
			return nil, nil
		}
	}

	return []Action{{Kind: PlaceEntry, StrategyID: s.ID, Order: entry}}, nil
}

func (ev *Evaluator) evaluateEntryActive(ctx context.Context, s *Strategy) ([]Action, error) {
	o, err := ev.Market.GetOrder(ctx, s.EntryOrderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return []Action{{
			Kind:       Fail,
			StrategyID: s.ID,
			Note:       fmt.Sprintf("entry order %s unknown to broker", s.EntryOrderID),
		}}, nil
	}

	switch o.Status {
	case broker.StatusFilled:
		return []Action{{
			Kind:           UpdateState,
			StrategyID:     s.ID,
			Phase:          PositionOpen,
			EntryFillPrice: o.FilledAvgPrice,
			HighWatermark:  o.FilledAvgPrice,
		}}, nil
	case broker.StatusCanceled, broker.StatusRejected, broker.StatusExpired:
		return []Action{{
			Kind:       Fail,
			StrategyID: s.ID,
			Note:       fmt.Sprintf("entry order %s ended %s", s.EntryOrderID, o.Status),
		}}, nil
	}
	return nil, nil // still working
}

func (ev *Evaluator) evaluatePositionOpen(ctx context.Context, s *Strategy) ([]Action, error) {
	// Exhaustive over strategy types; adding a type without a case
	// here is a bug, not a silent no-op.
	switch s.Type {
	case TrailingStop, PullbackTrailing:
		return ev.evaluateTrailing(ctx, s)
	case Bracket:
		return ev.evaluateBracket(s)
	case ScaleOut:
		return nil, nil // tranche exits not implemented yet
	case Grid:
		return nil, nil // level orders not implemented yet
	default:
		return nil, fmt.Errorf("unhandled strategy type %q", s.Type)
	}
}

func (ev *Evaluator) evaluateTrailing(ctx context.Context, s *Strategy) ([]Action, error) {
	var actions []Action

	q, err := ev.Market.GetQuote(ctx, s.Symbol)
	if err != nil {
		return nil, err
	}

	// The watermark only ever ratchets upward.
	if mid := q.Mid(); mid.GreaterThan(s.HighWatermark) {
		actions = append(actions, Action{
			Kind:           UpdateState,
			StrategyID:     s.ID,
			Phase:          s.Phase,
			EntryFillPrice: s.EntryFillPrice,
			HighWatermark:  mid,
		})
	}

	if len(s.ExitOrderIDs) == 0 {
		actions = append(actions, Action{
			Kind:       PlaceExit,
			StrategyID: s.ID,
			Order: broker.OrderRequest{
				Symbol:       s.Symbol,
				Qty:          s.Qty,
				Side:         broker.Sell,
				Type:         broker.TrailingStop,
				TrailPercent: s.trailPercent(),
			},
		})
	}
	return actions, nil
}

var percentBase = decimal.NewFromInt(100)

func (ev *Evaluator) evaluateBracket(s *Strategy) ([]Action, error) {
	if len(s.ExitOrderIDs) > 0 {
		return nil, nil
	}

	// Only the take-profit leg is placed. The stop-loss leg and true
	// one-cancels-other pairing are intentionally absent.
	target := s.EntryFillPrice.Mul(percentBase.Add(s.Bracket.TakeProfitPct)).Div(percentBase)

	return []Action{{
		Kind:       PlaceExit,
		StrategyID: s.ID,
		Order: broker.OrderRequest{
			Symbol:     s.Symbol,
			Qty:        s.Qty,
			Side:       broker.Sell,
			Type:       broker.Limit,
			LimitPrice: target,
		},
	}}, nil
}

func (ev *Evaluator) evaluateExiting(ctx context.Context, s *Strategy) ([]Action, error) {
	for _, exitID := range s.ExitOrderIDs {
		o, err := ev.Market.GetOrder(ctx, exitID)
		if err != nil {
			return nil, err
		}
		if o == nil {
			continue
		}
		switch o.Status {
		case broker.StatusFilled:
			return []Action{{
				Kind:       Complete,
				StrategyID: s.ID,
				Note:       fmt.Sprintf("exit order %s filled at %s", exitID, o.FilledAvgPrice),
			}}, nil
		case broker.StatusCanceled, broker.StatusRejected, broker.StatusExpired:
			return []Action{{
				Kind:       Fail,
				StrategyID: s.ID,
				Note:       fmt.Sprintf("exit order %s ended %s", exitID, o.Status),
			}}, nil
		}
	}
	return nil, nil // exits still working
}
