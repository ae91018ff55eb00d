// Package ranking scores a symbol universe by deviation below the moving
// average and selects the top candidates.
package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/itsnitinr/zerodha-algo-trading/internal/domain"
	"github.com/itsnitinr/zerodha-algo-trading/pkg/indicators"
)

type historyProvider interface {
	GetPriceHistory(ctx context.Context, symbol domain.Symbol, from, to time.Time) ([]domain.PriceBar, error)
}

// Ranker computes moving-average deviation signals for a fixed universe.
type Ranker struct {
	history      historyProvider
	maWindow     int
	lookbackDays int
	concurrency  int
	logger       *zap.Logger
}

// NewRanker returns a configured Ranker. The calendar lookback must cover at
// least three times the trading-day window so weekends and holidays cannot
// starve the average.
func NewRanker(history historyProvider, maWindow, lookbackDays, concurrency int, logger *zap.Logger) (*Ranker, error) {
	if maWindow < 2 {
		return nil, fmt.Errorf("maWindow must be >= 2, got %d", maWindow)
	}
	if lookbackDays < 3*maWindow {
		return nil, fmt.Errorf("lookbackDays must be >= %d for a %d-day window, got %d", 3*maWindow, maWindow, lookbackDays)
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}

	return &Ranker{
		history:      history,
		maWindow:     maWindow,
		lookbackDays: lookbackDays,
		concurrency:  concurrency,
		logger:       logger,
	}, nil
}

// RankCandidates evaluates every symbol in the universe and returns at most
// topN signals strictly below their moving average, ordered ascending by
// deviation (most fallen first). Symbols with missing or short data are
// skipped, never failed; a fetch error on one symbol does not cancel the
// others.
func (r *Ranker) RankCandidates(ctx context.Context, universe domain.Universe, topN int) []domain.Signal {
	if topN < 1 || len(universe) == 0 {
		return nil
	}

	to := time.Now()
	from := to.AddDate(0, 0, -r.lookbackDays)

	// fan out bounded fetches; each slot is owned by exactly one worker, so the
	// slice needs no lock. Aggregation waits for the whole batch.
	signals := make([]*domain.Signal, len(universe))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, symbol := range universe {
		g.Go(func() error {
			signals[i] = r.evaluateSymbol(ctx, symbol, from, to)
			return nil
		})
	}
	_ = g.Wait()

	candidates := make([]domain.Signal, 0, len(universe))
	for _, s := range signals {
		if s == nil {
			continue
		}
		if !s.BelowAverage() {
			r.logger.Debug("symbol above moving average",
				zap.String("symbol", s.Symbol.String()),
				zap.String("deviation_pct", s.DeviationPct.StringFixed(2)))
			continue
		}
		candidates = append(candidates, *s)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DeviationPct.LessThan(candidates[j].DeviationPct)
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	return candidates
}

// evaluateSymbol computes the signal for one symbol. A nil result means the
// symbol is excluded from ranking for this run.
func (r *Ranker) evaluateSymbol(ctx context.Context, symbol domain.Symbol, from, to time.Time) *domain.Signal {
	bars, err := r.history.GetPriceHistory(ctx, symbol, from, to)
	if err != nil {
		r.logger.Warn("skipping symbol, history unavailable",
			zap.String("symbol", symbol.String()),
			zap.Error(err))
		return nil
	}

	if len(bars) < r.maWindow {
		r.logger.Debug("skipping symbol, not enough closes",
			zap.String("symbol", symbol.String()),
			zap.Int("closes", len(bars)),
			zap.Int("window", r.maWindow))
		return nil
	}

	domain.SortBarsByDate(bars)
	closes := domain.Closes(bars)

	ma, err := indicators.LatestSMA(closes, r.maWindow)
	if err != nil {
		r.logger.Warn("skipping symbol, moving average failed",
			zap.String("symbol", symbol.String()),
			zap.Error(err))
		return nil
	}
	if ma.LessThanOrEqual(decimal.Zero) {
		r.logger.Warn("skipping symbol, degenerate moving average",
			zap.String("symbol", symbol.String()),
			zap.String("moving_average", ma.String()))
		return nil
	}

	latest := closes[len(closes)-1]
	signal, err := domain.NewSignal(symbol, latest, ma)
	if err != nil {
		r.logger.Warn("skipping symbol, invalid signal",
			zap.String("symbol", symbol.String()),
			zap.Error(err))
		return nil
	}

	return &signal
}
