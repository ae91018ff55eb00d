package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar is a single daily close for a symbol.
type PriceBar struct {
	// Date is the trading day of the bar.
	Date time.Time
	// Close is the closing price.
	Close decimal.Decimal
}

// SortBarsByDate orders bars ascending by date in place.
func SortBarsByDate(bars []PriceBar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}

// Closes extracts the close prices of the given bars, preserving order.
func Closes(bars []PriceBar) []decimal.Decimal {
	closes := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
