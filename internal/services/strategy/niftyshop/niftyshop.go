// Package niftyshop implements the holdings-reconciliation and order-decision
// engine: sell on profit, buy new candidates up to the daily limit, otherwise
// average down the single worst faller.
package niftyshop

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/itsnitinr/zerodha-algo-trading/internal/domain"
)

type pricer interface {
	GetCurrentPrice(ctx context.Context, symbol domain.Symbol) (decimal.Decimal, error)
}

// Thresholds encapsulates the decision thresholds for one run.
type Thresholds struct {
	// ProfitPercent is the gain above which a holding is sold. Strictly
	// greater-than; a holding exactly at the threshold is kept.
	ProfitPercent decimal.Decimal
	// LossPercent is the negative change at or below which a held symbol
	// qualifies for averaging down.
	LossPercent decimal.Decimal
	// DailyTradeLimit caps new-position buys per run.
	DailyTradeLimit int
}

// NewThresholds creates validated thresholds.
func NewThresholds(profitPercent, lossPercent decimal.Decimal, dailyTradeLimit int) (Thresholds, error) {
	if profitPercent.LessThanOrEqual(decimal.Zero) {
		return Thresholds{}, fmt.Errorf("profitPercent must be positive, got %s", profitPercent.String())
	}
	if lossPercent.GreaterThanOrEqual(decimal.Zero) {
		return Thresholds{}, fmt.Errorf("lossPercent must be negative, got %s", lossPercent.String())
	}
	if dailyTradeLimit < 1 {
		return Thresholds{}, fmt.Errorf("dailyTradeLimit must be >= 1, got %d", dailyTradeLimit)
	}

	return Thresholds{
		ProfitPercent:   profitPercent,
		LossPercent:     lossPercent,
		DailyTradeLimit: dailyTradeLimit,
	}, nil
}

// Strategy decides trades from a holdings snapshot and a ranked candidate
// list. It keeps no state between runs; every decision is a pure function of
// the snapshot passed in.
type Strategy struct {
	pricer     pricer
	thresholds Thresholds
	logger     *zap.Logger
}

// NewStrategy returns a configured decision engine.
func NewStrategy(pricer pricer, thresholds Thresholds, logger *zap.Logger) *Strategy {
	return &Strategy{
		pricer:     pricer,
		thresholds: thresholds,
		logger:     logger,
	}
}

type sellCandidate struct {
	holding   domain.Holding
	price     decimal.Decimal
	profitPct decimal.Decimal
}

// DecideSells emits a SELL decision for every active holding whose profit
// strictly exceeds the profit threshold, ordered by descending profit.
// Holdings with an unavailable price are skipped; a missing price is never
// treated as zero.
func (s *Strategy) DecideSells(ctx context.Context, holdings []domain.Holding) []domain.TradeDecision {
	candidates := make([]sellCandidate, 0, len(holdings))

	for _, holding := range holdings {
		if !holding.IsActive() {
			continue
		}

		price, err := s.pricer.GetCurrentPrice(ctx, holding.Symbol)
		if err != nil {
			s.logger.Warn("skipping holding in sell check, price unavailable",
				zap.String("symbol", holding.Symbol.String()),
				zap.Error(err))
			continue
		}

		profitPct := holding.ProfitPercentAt(price)
		if !profitPct.GreaterThan(s.thresholds.ProfitPercent) {
			s.logger.Debug("holding below profit threshold",
				zap.String("symbol", holding.Symbol.String()),
				zap.String("profit_pct", profitPct.StringFixed(2)))
			continue
		}

		candidates = append(candidates, sellCandidate{
			holding:   holding,
			price:     price,
			profitPct: profitPct,
		})
	}

	// highest profit first; sells are independent, order matters for reporting only
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].profitPct.GreaterThan(candidates[j].profitPct)
	})

	decisions := make([]domain.TradeDecision, 0, len(candidates))
	for _, c := range candidates {
		s.logger.Info("sell decision",
			zap.String("symbol", c.holding.Symbol.String()),
			zap.String("profit_pct", c.profitPct.StringFixed(2)),
			zap.String("price", c.price.String()))
		decisions = append(decisions, domain.TradeDecision{
			Symbol:         c.holding.Symbol,
			Action:         domain.ActionSell,
			ReferencePrice: c.price,
			Quantity:       c.holding.Quantity,
		})
	}

	return decisions
}

// DecideBuys walks the ranked candidate list and buys symbols not yet held, up
// to the daily trade limit. When no fresh buy happens (every candidate already
// held, or no candidates), it instead considers averaging down: among holdings
// that have fallen at or below the loss threshold since their last buy, the
// single most-fallen one is bought. When neither branch yields a trade the
// engine abstains for the run.
func (s *Strategy) DecideBuys(ctx context.Context, holdings []domain.Holding, candidates []domain.Signal) []domain.TradeDecision {
	held := make(map[domain.Symbol]struct{}, len(holdings))
	for _, h := range holdings {
		if h.IsActive() {
			held[h.Symbol] = struct{}{}
		}
	}

	decisions := make([]domain.TradeDecision, 0, s.thresholds.DailyTradeLimit)
	for _, candidate := range candidates {
		if _, ok := held[candidate.Symbol]; ok {
			continue
		}
		if len(decisions) >= s.thresholds.DailyTradeLimit {
			s.logger.Info("daily trade limit reached, skipping candidate",
				zap.String("symbol", candidate.Symbol.String()),
				zap.Int("limit", s.thresholds.DailyTradeLimit))
			continue
		}

		s.logger.Info("buy decision for new position",
			zap.String("symbol", candidate.Symbol.String()),
			zap.String("deviation_pct", candidate.DeviationPct.StringFixed(2)))
		decisions = append(decisions, domain.TradeDecision{
			Symbol:         candidate.Symbol,
			Action:         domain.ActionBuyNew,
			ReferencePrice: candidate.LatestClose,
		})
	}

	if len(decisions) > 0 {
		return decisions
	}

	s.logger.Info("no new positions to open, checking holdings for averaging down")
	if decision, ok := s.decideAveraging(ctx, holdings); ok {
		return []domain.TradeDecision{decision}
	}

	s.logger.Info("no holding fell below the averaging threshold, abstaining for this run")
	return nil
}

// decideAveraging picks at most one holding to average down: the one with the
// most negative change since its last buy, ties resolved by holdings order.
func (s *Strategy) decideAveraging(ctx context.Context, holdings []domain.Holding) (domain.TradeDecision, bool) {
	var (
		best      domain.TradeDecision
		bestPct   decimal.Decimal
		bestFound bool
	)

	for _, holding := range lastAcquisitions(holdings) {
		price, err := s.pricer.GetCurrentPrice(ctx, holding.Symbol)
		if err != nil {
			s.logger.Warn("skipping holding in averaging check, price unavailable",
				zap.String("symbol", holding.Symbol.String()),
				zap.Error(err))
			continue
		}

		// PercentageDiff guards last_buy_price == 0 by yielding zero, which can
		// never pass a negative threshold
		changePct := domain.PercentageDiff(price, holding.AvgEntryPrice)
		if changePct.GreaterThan(s.thresholds.LossPercent) {
			s.logger.Debug("holding above averaging threshold",
				zap.String("symbol", holding.Symbol.String()),
				zap.String("change_pct", changePct.StringFixed(2)))
			continue
		}

		if !bestFound || changePct.LessThan(bestPct) {
			best = domain.TradeDecision{
				Symbol:         holding.Symbol,
				Action:         domain.ActionBuyAverage,
				ReferencePrice: price,
			}
			bestPct = changePct
			bestFound = true
		}
	}

	if bestFound {
		s.logger.Info("averaging down decision",
			zap.String("symbol", best.Symbol.String()),
			zap.String("change_pct", bestPct.StringFixed(2)))
	}

	return best, bestFound
}

// lastAcquisitions collapses holdings to one entry per symbol, keeping the
// most recently acquired lot. Order of first appearance is preserved so
// threshold ties resolve deterministically.
func lastAcquisitions(holdings []domain.Holding) []domain.Holding {
	bySymbol := make(map[domain.Symbol]int, len(holdings))
	result := make([]domain.Holding, 0, len(holdings))

	for _, h := range holdings {
		if !h.IsActive() {
			continue
		}
		if idx, ok := bySymbol[h.Symbol]; ok {
			if h.AcquiredAt.After(result[idx].AcquiredAt) {
				result[idx] = h
			}
			continue
		}
		bySymbol[h.Symbol] = len(result)
		result = append(result, h)
	}

	return result
}
