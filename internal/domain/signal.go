package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Signal is a moving-average deviation reading for one symbol. Signals are
// recomputed on every strategy run and never persisted.
type Signal struct {
	Symbol        Symbol
	LatestClose   decimal.Decimal
	MovingAverage decimal.Decimal
	DeviationPct  decimal.Decimal
}

// NewSignal builds a validated signal. A non-positive moving average makes the
// deviation undefined and is rejected.
func NewSignal(symbol Symbol, latestClose, movingAverage decimal.Decimal) (Signal, error) {
	if movingAverage.LessThanOrEqual(decimal.Zero) {
		return Signal{}, fmt.Errorf("moving average must be positive, got %s", movingAverage.String())
	}

	return Signal{
		Symbol:        symbol,
		LatestClose:   latestClose,
		MovingAverage: movingAverage,
		DeviationPct:  PercentageDiff(latestClose, movingAverage),
	}, nil
}

// BelowAverage reports whether the latest close is strictly below the moving
// average. Equality is not a candidate condition.
func (s Signal) BelowAverage() bool {
	return s.LatestClose.LessThan(s.MovingAverage)
}
