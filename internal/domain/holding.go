package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a snapshot of one position as reported by the broker. The broker
// is the source of truth; the engine only reads a snapshot per run.
type Holding struct {
	Symbol Symbol
	// Quantity is the number of shares held. Active holdings have Quantity > 0.
	Quantity int64
	// AvgEntryPrice is the broker-reported average acquisition price.
	AvgEntryPrice decimal.Decimal
	// LastPrice is the last traded price known to the broker at snapshot time.
	LastPrice decimal.Decimal
	// PnL is the broker-reported unrealized profit and loss.
	PnL decimal.Decimal
	// AcquiredAt approximates the most recent acquisition time. The holdings
	// endpoint does not expose true purchase timestamps, so this is stamped at
	// snapshot time unless a fresher journal record exists.
	AcquiredAt time.Time
}

// IsActive reports whether the holding represents an open position.
func (h Holding) IsActive() bool {
	return h.Quantity > 0
}

// ProfitPercentAt returns the unrealized profit percentage at the given market
// price relative to the average entry price.
func (h Holding) ProfitPercentAt(price decimal.Decimal) decimal.Decimal {
	return PercentageDiff(price, h.AvgEntryPrice)
}
