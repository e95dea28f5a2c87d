package strategy

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/stratengine/errs"
)

// ConditionOp is the comparison side of a conditional entry.
type ConditionOp string

const (
	Below ConditionOp = "below"
	Above ConditionOp = "above"
)

// ParseCondition splits an expression like "below:170.00" or
// "above:42.5" into its operator and threshold price.
func ParseCondition(expr string) (ConditionOp, decimal.Decimal, error) {
	op, raw, ok := strings.Cut(strings.TrimSpace(expr), ":")
	if !ok {
		return "", decimal.Zero, errs.Validation("condition %q must look like below:<price> or above:<price>", expr)
	}

	var cop ConditionOp
	switch strings.ToLower(op) {
	case "below":
		cop = Below
	case "above":
		cop = Above
	default:
		return "", decimal.Zero, errs.Validation("unknown condition operator %q", op)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || price.Sign() <= 0 {
		return "", decimal.Zero, errs.Validation("condition %q has a bad price", expr)
	}
	return cop, price, nil
}

// Holds reports whether the condition is currently satisfied by price.
func (op ConditionOp) Holds(price, threshold decimal.Decimal) bool {
	if op == Below {
		return price.LessThan(threshold)
	}
	return price.GreaterThan(threshold)
}
