// Package indicators bridges decimal price series to the cinar/indicator
// library.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
)

// SMA calculates the simple moving average over the given closes. The result
// holds one value per full window, the last entry being the average of the
// most recent period closes.
func SMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if period < 1 {
		return nil, fmt.Errorf("period must be >= 1, got %d", period)
	}
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	sma := trend.NewSmaWithPeriod[float64](period)
	inputChan := helper.SliceToChan(closesFloat)
	outputChan := sma.Compute(inputChan)
	smaFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(smaFloat), nil
}

// LatestSMA returns the simple moving average of the most recent period closes.
func LatestSMA(closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	values, err := SMA(closes, period)
	if err != nil {
		return decimal.Zero, err
	}
	if len(values) == 0 {
		return decimal.Zero, fmt.Errorf("no moving average produced for period %d", period)
	}
	return values[len(values)-1], nil
}

// decimalsToFloat64 converts a slice of decimal.Decimal to []float64.
func decimalsToFloat64(decimals []decimal.Decimal) []float64 {
	result := make([]float64, len(decimals))
	for i, d := range decimals {
		result[i], _ = d.Float64()
	}
	return result
}

// float64ToDecimals converts a slice of float64 to []decimal.Decimal.
func float64ToDecimals(floats []float64) []decimal.Decimal {
	result := make([]decimal.Decimal, len(floats))
	for i, f := range floats {
		result[i] = decimal.NewFromFloat(f)
	}
	return result
}
