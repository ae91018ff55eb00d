package domain

import "github.com/shopspring/decimal"

const percentageMultiplier = 100

// PercentageDiff returns the percentage difference between current and reference
// values. A zero reference yields zero, this is a degenerate-input guard rather
// than a trading signal.
func PercentageDiff(current, reference decimal.Decimal) decimal.Decimal {
	if reference.IsZero() {
		return decimal.Zero
	}
	return current.Sub(reference).Div(reference).Mul(decimal.NewFromInt(percentageMultiplier))
}
