package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/itsnitinr/zerodha-algo-trading/internal/domain"
)

type fakeHistory struct {
	bars map[domain.Symbol][]domain.PriceBar
	errs map[domain.Symbol]error
}

func (f *fakeHistory) GetPriceHistory(ctx context.Context, symbol domain.Symbol, from, to time.Time) ([]domain.PriceBar, error) {
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return f.bars[symbol], nil
}

// flatThenLast builds count bars closing at flat, with the final bar closing at
// last. With a window equal to count the average still lands near flat, so the
// deviation is driven by last.
func flatThenLast(flat, last int64, count int) []domain.PriceBar {
	bars := make([]domain.PriceBar, count)
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		bars[i] = domain.PriceBar{Date: day.AddDate(0, 0, i), Close: decimal.NewFromInt(flat)}
	}
	bars[count-1].Close = decimal.NewFromInt(last)
	return bars
}

func newTestRanker(t *testing.T, history *fakeHistory, window int) *Ranker {
	t.Helper()
	r, err := NewRanker(history, window, 3*window, 2, zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestNewRankerValidation(t *testing.T) {
	history := &fakeHistory{}
	logger := zap.NewNop()

	_, err := NewRanker(history, 1, 60, 2, logger)
	require.Error(t, err, "window below 2 must be rejected")

	_, err = NewRanker(history, 20, 59, 2, logger)
	require.Error(t, err, "lookback shorter than 3x window must be rejected")

	_, err = NewRanker(history, 20, 60, 0, logger)
	require.Error(t, err, "zero concurrency must be rejected")

	_, err = NewRanker(history, 20, 60, 2, logger)
	require.NoError(t, err)
}

func TestRankCandidatesOrdersByDeepestFall(t *testing.T) {
	history := &fakeHistory{bars: map[domain.Symbol][]domain.PriceBar{
		"A": flatThenLast(100, 90, 20),  // ~-9.5% below its average
		"B": flatThenLast(100, 95, 20),  // ~-4.8% below
		"C": flatThenLast(100, 110, 20), // above average
	}}
	r := newTestRanker(t, history, 20)

	got := r.RankCandidates(context.Background(), domain.Universe{"A", "B", "C"}, 5)
	require.Len(t, got, 2)
	require.Equal(t, domain.Symbol("A"), got[0].Symbol)
	require.Equal(t, domain.Symbol("B"), got[1].Symbol)
	require.True(t, got[0].DeviationPct.LessThan(got[1].DeviationPct))
}

func TestRankCandidatesTruncatesToTopN(t *testing.T) {
	history := &fakeHistory{bars: map[domain.Symbol][]domain.PriceBar{
		"A": flatThenLast(100, 90, 20),
		"B": flatThenLast(100, 95, 20),
	}}
	r := newTestRanker(t, history, 20)

	got := r.RankCandidates(context.Background(), domain.Universe{"A", "B"}, 1)
	require.Len(t, got, 1)
	require.Equal(t, domain.Symbol("A"), got[0].Symbol, "the deeper faller wins the single slot")
}

func TestRankCandidatesExcludesAtAverage(t *testing.T) {
	history := &fakeHistory{bars: map[domain.Symbol][]domain.PriceBar{
		"FLAT": flatThenLast(100, 100, 20), // close == average
	}}
	r := newTestRanker(t, history, 20)

	got := r.RankCandidates(context.Background(), domain.Universe{"FLAT"}, 5)
	require.Empty(t, got, "a close equal to the average is not a candidate")
}

func TestRankCandidatesSkipsShortHistory(t *testing.T) {
	history := &fakeHistory{bars: map[domain.Symbol][]domain.PriceBar{
		"SHORT": flatThenLast(100, 90, 19), // one close short of the window
		"FULL":  flatThenLast(100, 90, 20),
	}}
	r := newTestRanker(t, history, 20)

	got := r.RankCandidates(context.Background(), domain.Universe{"SHORT", "FULL"}, 5)
	require.Len(t, got, 1)
	require.Equal(t, domain.Symbol("FULL"), got[0].Symbol)
}

func TestRankCandidatesSkipsFailedSymbolWithoutCancellingOthers(t *testing.T) {
	history := &fakeHistory{
		bars: map[domain.Symbol][]domain.PriceBar{
			"OK": flatThenLast(100, 90, 20),
		},
		errs: map[domain.Symbol]error{
			"BROKEN": errors.New("gateway timeout"),
		},
	}
	r := newTestRanker(t, history, 20)

	got := r.RankCandidates(context.Background(), domain.Universe{"BROKEN", "OK"}, 5)
	require.Len(t, got, 1)
	require.Equal(t, domain.Symbol("OK"), got[0].Symbol)
}

func TestRankCandidatesEmptyInputs(t *testing.T) {
	r := newTestRanker(t, &fakeHistory{}, 20)

	require.Nil(t, r.RankCandidates(context.Background(), nil, 5))
	require.Nil(t, r.RankCandidates(context.Background(), domain.Universe{"A"}, 0))
}
