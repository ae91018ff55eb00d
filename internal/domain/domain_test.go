package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPercentageDiff(t *testing.T) {
	tests := []struct {
		name      string
		current   decimal.Decimal
		reference decimal.Decimal
		expected  decimal.Decimal
	}{
		{
			name:      "gain of 6 percent",
			current:   decimal.NewFromInt(106),
			reference: decimal.NewFromInt(100),
			expected:  decimal.NewFromInt(6),
		},
		{
			name:      "loss of 4 percent",
			current:   decimal.NewFromInt(96),
			reference: decimal.NewFromInt(100),
			expected:  decimal.NewFromInt(-4),
		},
		{
			name:      "no change",
			current:   decimal.NewFromInt(100),
			reference: decimal.NewFromInt(100),
			expected:  decimal.Zero,
		},
		{
			name:      "zero reference yields zero",
			current:   decimal.NewFromInt(50),
			reference: decimal.Zero,
			expected:  decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentageDiff(tt.current, tt.reference)
			require.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestNewSignal(t *testing.T) {
	t.Run("valid signal below average", func(t *testing.T) {
		s, err := NewSignal("RELIANCE", decimal.NewFromInt(90), decimal.NewFromInt(100))
		require.NoError(t, err)
		require.True(t, s.BelowAverage())
		require.True(t, s.DeviationPct.Equal(decimal.NewFromInt(-10)), "got %s", s.DeviationPct)
	})

	t.Run("close equal to average is not a candidate", func(t *testing.T) {
		s, err := NewSignal("TCS", decimal.NewFromInt(100), decimal.NewFromInt(100))
		require.NoError(t, err)
		require.False(t, s.BelowAverage())
	})

	t.Run("close above average is not a candidate", func(t *testing.T) {
		s, err := NewSignal("INFY", decimal.NewFromInt(110), decimal.NewFromInt(100))
		require.NoError(t, err)
		require.False(t, s.BelowAverage())
	})

	t.Run("zero moving average rejected", func(t *testing.T) {
		_, err := NewSignal("SBIN", decimal.NewFromInt(10), decimal.Zero)
		require.Error(t, err)
	})

	t.Run("negative moving average rejected", func(t *testing.T) {
		_, err := NewSignal("SBIN", decimal.NewFromInt(10), decimal.NewFromInt(-1))
		require.Error(t, err)
	})
}

func TestNewUniverse(t *testing.T) {
	t.Run("preserves order", func(t *testing.T) {
		u, err := NewUniverse([]string{"TCS", "INFY", "WIPRO"})
		require.NoError(t, err)
		require.Equal(t, Universe{"TCS", "INFY", "WIPRO"}, u)
		require.True(t, u.Contains("INFY"))
		require.False(t, u.Contains("SBIN"))
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := NewUniverse(nil)
		require.Error(t, err)
	})

	t.Run("rejects duplicate", func(t *testing.T) {
		_, err := NewUniverse([]string{"TCS", "TCS"})
		require.Error(t, err)
	})

	t.Run("rejects empty symbol", func(t *testing.T) {
		_, err := NewUniverse([]string{"TCS", ""})
		require.Error(t, err)
	})

	t.Run("default universe is valid", func(t *testing.T) {
		u, err := NewUniverse(NiftyFifty)
		require.NoError(t, err)
		require.Len(t, u, 50)
	})
}

func TestActionRoundTrip(t *testing.T) {
	for _, action := range []Action{ActionSell, ActionBuyNew, ActionBuyAverage} {
		parsed, err := ActionFromString(action.String())
		require.NoError(t, err)
		require.Equal(t, action, parsed)
	}

	_, err := ActionFromString("short")
	require.Error(t, err)
}

func TestHoldingProfitPercentAt(t *testing.T) {
	h := Holding{
		Symbol:        "HDFCBANK",
		Quantity:      10,
		AvgEntryPrice: decimal.NewFromInt(100),
	}
	require.True(t, h.IsActive())
	require.True(t, h.ProfitPercentAt(decimal.NewFromInt(106)).Equal(decimal.NewFromInt(6)))

	closed := Holding{Symbol: "HDFCBANK", Quantity: 0}
	require.False(t, closed.IsActive())
}
