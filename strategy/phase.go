package strategy

import (
	"time"

	"github.com/rustyeddy/stratengine/errs"
)

// Phase is a strategy's lifecycle state.
//
//	PENDING -> ENTRY_ACTIVE -> POSITION_OPEN -> EXITING -> COMPLETED|FAILED
//
// PAUSED is reachable from any non-terminal phase; resume lands on
// EXITING when exit orders are outstanding, POSITION_OPEN when an
// entry fill has been recorded, and PENDING otherwise. COMPLETED and
// FAILED are terminal.
type Phase string

const (
	Pending      Phase = "PENDING"
	EntryActive  Phase = "ENTRY_ACTIVE"
	PositionOpen Phase = "POSITION_OPEN"
	Exiting      Phase = "EXITING"
	Completed    Phase = "COMPLETED"
	Failed       Phase = "FAILED"
	Paused       Phase = "PAUSED"
)

func (p Phase) IsTerminal() bool {
	return p == Completed || p == Failed
}

var transitions = map[Phase][]Phase{
	Pending:      {EntryActive, Paused, Failed},
	EntryActive:  {PositionOpen, Paused, Failed},
	PositionOpen: {Exiting, Paused, Failed},
	Exiting:      {Completed, Failed, Paused},
	Paused:       {Pending, PositionOpen, Exiting},
}

// Transition moves the strategy to phase to, or returns a
// ValidationError when the move is not in the table. Any successful
// transition bumps UpdatedAt; callers must persist before moving on.
func (s *Strategy) Transition(to Phase) error {
	for _, allowed := range transitions[s.Phase] {
		if allowed == to {
			s.Phase = to
			s.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return errs.Validation("invalid phase transition %s -> %s for strategy %s", s.Phase, to, s.ID)
}

// Pause suspends a non-terminal strategy.
func (s *Strategy) Pause() error {
	if s.Phase == Paused {
		return nil
	}
	return s.Transition(Paused)
}

// Resume returns a paused strategy to the furthest phase its recorded
// progress supports. Outstanding exit orders win over the entry fill:
// resuming to POSITION_OPEN with exits resting would stall, since the
// evaluator only places exits from there and never polls ones that
// already exist.
func (s *Strategy) Resume() error {
	if s.Phase != Paused {
		return errs.Validation("strategy %s is not paused", s.ID)
	}
	if len(s.ExitOrderIDs) > 0 {
		return s.Transition(Exiting)
	}
	if s.EntryFillPrice.Sign() > 0 {
		return s.Transition(PositionOpen)
	}
	return s.Transition(Pending)
}
