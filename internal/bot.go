// Package internal wires the gateways, the ranking engine and the decision
// engine into one strategy run.
package internal

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/itsnitinr/zerodha-algo-trading/internal/domain"
)

type holdingsGateway interface {
	GetHoldings(ctx context.Context) ([]domain.Holding, error)
}

type ranker interface {
	RankCandidates(ctx context.Context, universe domain.Universe, topN int) []domain.Signal
}

type decider interface {
	DecideSells(ctx context.Context, holdings []domain.Holding) []domain.TradeDecision
	DecideBuys(ctx context.Context, holdings []domain.Holding, candidates []domain.Signal) []domain.TradeDecision
}

type orderRecorder interface {
	Record(ctx context.Context, decision domain.TradeDecision) error
}

// TradingBot sequences one strategy run: sell phase, ranking phase, buy phase.
// Phases never overlap; the buy phase observes holdings as updated by the
// paper sells of the same run.
type TradingBot struct {
	holdings holdingsGateway
	ranker   ranker
	strategy decider
	recorder orderRecorder
	universe domain.Universe
	topN     int
	logger   *zap.Logger
}

// NewTradingBot creates a bot for one universe.
func NewTradingBot(holdings holdingsGateway, ranker ranker, strategy decider, recorder orderRecorder,
	universe domain.Universe, topN int, logger *zap.Logger) *TradingBot {

	return &TradingBot{
		holdings: holdings,
		ranker:   ranker,
		strategy: strategy,
		recorder: recorder,
		universe: universe,
		topN:     topN,
		logger:   logger,
	}
}

// Run executes one complete strategy pass.
func (b *TradingBot) Run(ctx context.Context) error {
	snapshot, err := b.holdings.GetHoldings(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to fetch holdings for sell phase")
	}
	b.logger.Info("holdings snapshot loaded", zap.Int("holdings", len(snapshot)))

	sells := b.strategy.DecideSells(ctx, snapshot)
	sold := make(map[domain.Symbol]struct{}, len(sells))
	recordedSells := 0
	for _, decision := range sells {
		if err := b.recorder.Record(ctx, decision); err != nil {
			// a recording failure never blocks the remaining decisions
			b.logger.Error("failed to record sell decision",
				zap.String("symbol", decision.Symbol.String()),
				zap.Error(err))
			continue
		}
		sold[decision.Symbol] = struct{}{}
		recordedSells++
	}

	candidates := b.ranker.RankCandidates(ctx, b.universe, b.topN)
	b.logger.Info("ranking phase complete",
		zap.Int("universe", len(b.universe)),
		zap.Int("candidates", len(candidates)))

	// the broker does not know about paper sells, so re-fetch and subtract the
	// symbols sold this run
	current, err := b.holdings.GetHoldings(ctx)
	if err != nil {
		b.logger.Warn("failed to refresh holdings for buy phase, reusing sell-phase snapshot", zap.Error(err))
		current = snapshot
	}
	remaining := make([]domain.Holding, 0, len(current))
	for _, h := range current {
		if _, ok := sold[h.Symbol]; ok {
			continue
		}
		remaining = append(remaining, h)
	}

	buys := b.strategy.DecideBuys(ctx, remaining, candidates)
	recordedBuys := 0
	for _, decision := range buys {
		if err := b.recorder.Record(ctx, decision); err != nil {
			b.logger.Error("failed to record buy decision",
				zap.String("symbol", decision.Symbol.String()),
				zap.Error(err))
			continue
		}
		recordedBuys++
	}

	b.logger.Info("strategy run complete",
		zap.Int("holdings", len(snapshot)),
		zap.Int("candidates", len(candidates)),
		zap.Int("sells_recorded", recordedSells),
		zap.Int("buys_recorded", recordedBuys))

	return nil
}
