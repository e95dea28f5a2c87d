// Package strategy holds the persisted trading-plan model: typed
// per-strategy configuration, the lifecycle phase machine, and the
// pure evaluator that turns market state into order actions.
package strategy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/errs"
	"github.com/rustyeddy/stratengine/internal/id"
)

type Type string

const (
	TrailingStop     Type = "TRAILING_STOP"
	Bracket          Type = "BRACKET"
	ScaleOut         Type = "SCALE_OUT"
	Grid             Type = "GRID"
	PullbackTrailing Type = "PULLBACK_TRAILING"
)

type EntryType string

const (
	EntryMarket    EntryType = "MARKET"
	EntryLimit     EntryType = "LIMIT"
	EntryCondition EntryType = "CONDITION"
)

// EntryConfig describes how a strategy acquires its position.
// Condition entries hold an expression like "below:170.00".
type EntryConfig struct {
	Type      EntryType       `json:"type"`
	Price     decimal.Decimal `json:"price,omitempty"`
	Condition string          `json:"condition,omitempty"`
}

type TrailingStopConfig struct {
	TrailPercent decimal.Decimal `json:"trail_percent"`
}

type BracketConfig struct {
	TakeProfitPct decimal.Decimal `json:"take_profit_pct"`
	StopLossPct   decimal.Decimal `json:"stop_loss_pct"`
}

// Tranche is one scale-out slice: sell Pct percent of the position
// once the price has gained GainPct percent over the entry fill.
type Tranche struct {
	GainPct decimal.Decimal `json:"gain_pct"`
	Pct     decimal.Decimal `json:"pct"`
}

type ScaleOutConfig struct {
	Tranches []Tranche `json:"tranches"`
}

type GridConfig struct {
	Low         decimal.Decimal `json:"low"`
	High        decimal.Decimal `json:"high"`
	Levels      int             `json:"levels"`
	QtyPerLevel decimal.Decimal `json:"qty_per_level"`
}

type PullbackTrailingConfig struct {
	PullbackPct  decimal.Decimal `json:"pullback_pct"`
	TrailPercent decimal.Decimal `json:"trail_percent"`
}

// Strategy is a persisted trading plan with a lifecycle phase.
// Order ids it carries are weak lookups against the order store or
// broker; orders remain the system of record for execution facts and
// outlive the strategy.
type Strategy struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Type   Type   `json:"type"`
	Phase  Phase  `json:"phase"`

	Qty   decimal.Decimal `json:"qty"`
	Entry EntryConfig     `json:"entry"`

	TrailingStop     *TrailingStopConfig     `json:"trailing_stop,omitempty"`
	Bracket          *BracketConfig          `json:"bracket,omitempty"`
	ScaleOut         *ScaleOutConfig         `json:"scale_out,omitempty"`
	Grid             *GridConfig             `json:"grid,omitempty"`
	PullbackTrailing *PullbackTrailingConfig `json:"pullback_trailing,omitempty"`

	// Mutable execution state.
	EntryOrderID   string          `json:"entry_order_id,omitempty"`
	EntryFillPrice decimal.Decimal `json:"entry_fill_price,omitempty"`
	HighWatermark  decimal.Decimal `json:"high_watermark,omitempty"`
	ExitOrderIDs   []string        `json:"exit_order_ids,omitempty"`
	TrancheDone    []bool          `json:"tranche_done,omitempty"`
	LevelOrderIDs  map[int]string  `json:"level_order_ids,omitempty"`

	Enabled   bool      `json:"enabled"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New validates the type-specific configuration and returns a Pending
// strategy. An invalid combination fails here, before persistence;
// nothing is ever silently defaulted.
func New(symbol string, typ Type, qty decimal.Decimal, entry EntryConfig) (*Strategy, error) {
	s := &Strategy{
		ID:        id.New(),
		Symbol:    symbol,
		Type:      typ,
		Phase:     Pending,
		Qty:       qty,
		Entry:     entry,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	return s, s.validateBase()
}

func (s *Strategy) validateBase() error {
	if s.Symbol == "" {
		return errs.Validation("strategy symbol is required")
	}
	if s.Qty.Sign() <= 0 {
		return errs.Validation("strategy qty must be positive, got %s", s.Qty)
	}
	switch s.Entry.Type {
	case EntryMarket:
	case EntryLimit:
		if s.Entry.Price.Sign() <= 0 {
			return errs.Validation("limit entry requires a positive price")
		}
	case EntryCondition:
		if _, _, err := ParseCondition(s.Entry.Condition); err != nil {
			return err
		}
	default:
		return errs.Validation("unknown entry type %q", s.Entry.Type)
	}
	return nil
}

// Validate checks the full strategy, including the type-specific exit
// configuration. Stores call it before every write.
func (s *Strategy) Validate() error {
	if err := s.validateBase(); err != nil {
		return err
	}

	switch s.Type {
	case TrailingStop:
		if s.TrailingStop == nil {
			return errs.Validation("TRAILING_STOP requires trailing_stop config")
		}
		return validateTrailPercent(s.TrailingStop.TrailPercent)
	case Bracket:
		if s.Bracket == nil {
			return errs.Validation("BRACKET requires bracket config")
		}
		if s.Bracket.TakeProfitPct.Sign() <= 0 {
			return errs.Validation("bracket take_profit_pct must be positive")
		}
		if s.Bracket.StopLossPct.Sign() <= 0 {
			return errs.Validation("bracket stop_loss_pct must be positive")
		}
	case ScaleOut:
		if s.ScaleOut == nil || len(s.ScaleOut.Tranches) == 0 {
			return errs.Validation("SCALE_OUT requires at least one tranche")
		}
		sum := decimal.Zero
		for _, tr := range s.ScaleOut.Tranches {
			if tr.Pct.Sign() <= 0 {
				return errs.Validation("tranche pct must be positive")
			}
			sum = sum.Add(tr.Pct)
		}
		if !sum.Equal(decimal.NewFromInt(100)) {
			return errs.Validation("scale-out tranches must sum to 100%%, got %s", sum)
		}
	case Grid:
		g := s.Grid
		if g == nil {
			return errs.Validation("GRID requires grid config")
		}
		if g.Low.Sign() <= 0 || !g.High.GreaterThan(g.Low) {
			return errs.Validation("grid requires 0 < low < high")
		}
		if g.Levels < 2 {
			return errs.Validation("grid requires at least 2 levels")
		}
		if g.QtyPerLevel.Sign() <= 0 {
			return errs.Validation("grid qty_per_level must be positive")
		}
	case PullbackTrailing:
		p := s.PullbackTrailing
		if p == nil {
			return errs.Validation("PULLBACK_TRAILING requires pullback_trailing config")
		}
		if p.PullbackPct.Sign() <= 0 {
			return errs.Validation("pullback_pct must be positive")
		}
		return validateTrailPercent(p.TrailPercent)
	default:
		return errs.Validation("unknown strategy type %q", s.Type)
	}
	return nil
}

func validateTrailPercent(pct decimal.Decimal) error {
	if pct.Sign() <= 0 || pct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return errs.Validation("trail_percent must be in (0,100), got %s", pct)
	}
	return nil
}

// trailPercent returns the exit trail for the two trailing-style
// strategy types.
func (s *Strategy) trailPercent() decimal.Decimal {
	if s.Type == PullbackTrailing && s.PullbackTrailing != nil {
		return s.PullbackTrailing.TrailPercent
	}
	if s.TrailingStop != nil {
		return s.TrailingStop.TrailPercent
	}
	return decimal.Zero
}
