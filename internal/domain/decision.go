package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Action represents the type of trading action decided by the engine.
type Action int

const (
	ActionSell Action = iota
	ActionBuyNew
	ActionBuyAverage
)

// action string constants to avoid magic strings
const (
	actionStringSell       = "sell"
	actionStringBuyNew     = "buy_new"
	actionStringBuyAverage = "buy_average"
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionSell:
		return actionStringSell
	case ActionBuyNew:
		return actionStringBuyNew
	case ActionBuyAverage:
		return actionStringBuyAverage
	default:
		return "unknown"
	}
}

// ActionFromString parses a persisted action string.
func ActionFromString(s string) (Action, error) {
	switch s {
	case actionStringSell:
		return ActionSell, nil
	case actionStringBuyNew:
		return ActionBuyNew, nil
	case actionStringBuyAverage:
		return ActionBuyAverage, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// TradeDecision is the ephemeral output of the decision engine for one run,
// consumed immediately by the order recorder.
type TradeDecision struct {
	Symbol Symbol
	Action Action
	// ReferencePrice is the market price the decision was made against.
	ReferencePrice decimal.Decimal
	// Quantity is the position size for sells (full position) and zero for buys,
	// where sizing is left to the order gateway.
	Quantity int64
}

// String returns a human-readable representation.
func (d TradeDecision) String() string {
	return fmt.Sprintf("%s action: %s price: %s", d.Symbol, d.Action, d.ReferencePrice.String())
}
