package internal

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/itsnitinr/zerodha-algo-trading/internal/domain"
)

type fakeGateway struct {
	holdings []domain.Holding
	err      error
	calls    int
}

func (f *fakeGateway) GetHoldings(ctx context.Context) ([]domain.Holding, error) {
	f.calls++
	return f.holdings, f.err
}

type fakeRanker struct {
	candidates []domain.Signal
}

func (f *fakeRanker) RankCandidates(ctx context.Context, universe domain.Universe, topN int) []domain.Signal {
	return f.candidates
}

type fakeDecider struct {
	sells []domain.TradeDecision
	buys  []domain.TradeDecision

	buyHoldings []domain.Holding
}

func (f *fakeDecider) DecideSells(ctx context.Context, holdings []domain.Holding) []domain.TradeDecision {
	return f.sells
}

func (f *fakeDecider) DecideBuys(ctx context.Context, holdings []domain.Holding, candidates []domain.Signal) []domain.TradeDecision {
	f.buyHoldings = holdings
	return f.buys
}

type fakeRecorder struct {
	recorded []domain.TradeDecision
	failFor  map[domain.Symbol]error
}

func (f *fakeRecorder) Record(ctx context.Context, decision domain.TradeDecision) error {
	if err, ok := f.failFor[decision.Symbol]; ok {
		return err
	}
	f.recorded = append(f.recorded, decision)
	return nil
}

func sellDecision(symbol string) domain.TradeDecision {
	return domain.TradeDecision{
		Symbol:         domain.Symbol(symbol),
		Action:         domain.ActionSell,
		ReferencePrice: decimal.NewFromInt(110),
		Quantity:       1,
	}
}

func buyDecision(symbol string) domain.TradeDecision {
	return domain.TradeDecision{
		Symbol:         domain.Symbol(symbol),
		Action:         domain.ActionBuyNew,
		ReferencePrice: decimal.NewFromInt(90),
	}
}

func TestRunRecordsSellsThenBuys(t *testing.T) {
	gateway := &fakeGateway{holdings: []domain.Holding{
		{Symbol: "WIN", Quantity: 1},
		{Symbol: "KEEP", Quantity: 1},
	}}
	decider := &fakeDecider{
		sells: []domain.TradeDecision{sellDecision("WIN")},
		buys:  []domain.TradeDecision{buyDecision("NEW")},
	}
	recorder := &fakeRecorder{}
	bot := NewTradingBot(gateway, &fakeRanker{}, decider, recorder, domain.Universe{"WIN", "KEEP", "NEW"}, 5, zap.NewNop())

	require.NoError(t, bot.Run(context.Background()))

	require.Len(t, recorder.recorded, 2)
	require.Equal(t, domain.ActionSell, recorder.recorded[0].Action, "sell phase runs first")
	require.Equal(t, domain.ActionBuyNew, recorder.recorded[1].Action)
}

func TestRunBuyPhaseExcludesPaperSoldSymbols(t *testing.T) {
	gateway := &fakeGateway{holdings: []domain.Holding{
		{Symbol: "SOLD", Quantity: 1},
		{Symbol: "KEPT", Quantity: 1},
	}}
	decider := &fakeDecider{sells: []domain.TradeDecision{sellDecision("SOLD")}}
	bot := NewTradingBot(gateway, &fakeRanker{}, decider, &fakeRecorder{}, domain.Universe{"SOLD", "KEPT"}, 5, zap.NewNop())

	require.NoError(t, bot.Run(context.Background()))

	require.Len(t, decider.buyHoldings, 1, "the broker still reports the sold symbol, the bot must subtract it")
	require.Equal(t, domain.Symbol("KEPT"), decider.buyHoldings[0].Symbol)
}

func TestRunFailedSellRecordStaysInHoldings(t *testing.T) {
	gateway := &fakeGateway{holdings: []domain.Holding{{Symbol: "STUCK", Quantity: 1}}}
	decider := &fakeDecider{sells: []domain.TradeDecision{sellDecision("STUCK")}}
	recorder := &fakeRecorder{failFor: map[domain.Symbol]error{"STUCK": errors.New("journal full")}}
	bot := NewTradingBot(gateway, &fakeRanker{}, decider, recorder, domain.Universe{"STUCK"}, 5, zap.NewNop())

	require.NoError(t, bot.Run(context.Background()), "a journal failure must not abort the run")
	require.Len(t, decider.buyHoldings, 1, "an unrecorded sell is not a sell")
}

func TestRunAbortsWhenHoldingsUnavailable(t *testing.T) {
	gateway := &fakeGateway{err: errors.New("gateway down")}
	bot := NewTradingBot(gateway, &fakeRanker{}, &fakeDecider{}, &fakeRecorder{}, domain.Universe{"A"}, 5, zap.NewNop())

	require.Error(t, bot.Run(context.Background()))
	require.Equal(t, 1, gateway.calls)
}
