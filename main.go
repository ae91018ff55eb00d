package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itsnitinr/zerodha-algo-trading/config"
	"github.com/itsnitinr/zerodha-algo-trading/internal"
	"github.com/itsnitinr/zerodha-algo-trading/internal/clients"
	"github.com/itsnitinr/zerodha-algo-trading/internal/domain"
	"github.com/itsnitinr/zerodha-algo-trading/internal/services/orders"
	"github.com/itsnitinr/zerodha-algo-trading/internal/services/ranking"
	"github.com/itsnitinr/zerodha-algo-trading/internal/services/strategy/niftyshop"
	"github.com/itsnitinr/zerodha-algo-trading/internal/setup"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "niftyshop",
		Short: "Nifty 50 dip-buying automation for Zerodha Kite",
		Long: `niftyshop screens the Nifty 50 for stocks trading below their 20-day
moving average, takes profit on holdings above the configured threshold and
averages down the worst faller. All orders are recorded in a paper journal.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd(), newConfigureCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one strategy pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategy(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a yaml config (defaults apply when omitted)")
	return cmd
}

func newConfigureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactively configure the strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setup.RunTUI()
		},
	}
}

func runStrategy(parent context.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return err
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		logger.Error("failed to load credentials", zap.Error(err))
		return err
	}

	universe, err := domain.NewUniverse(cfg.Universe)
	if err != nil {
		logger.Error("invalid universe", zap.Error(err))
		return err
	}

	kite, err := clients.NewKiteClient(creds, logger)
	if err != nil {
		logger.Error("failed to create kite client", zap.Error(err))
		return err
	}
	if err := kite.Login(ctx); err != nil {
		logger.Error("login failed", zap.Error(err))
		return err
	}
	if err := kite.LoadInstruments(ctx, universe); err != nil {
		logger.Error("failed to load instrument tokens", zap.Error(err))
		return err
	}

	ranker, err := ranking.NewRanker(kite, cfg.MAWindow, cfg.LookbackDays, cfg.FetchConcurrency, logger)
	if err != nil {
		logger.Error("failed to create ranker", zap.Error(err))
		return err
	}

	thresholds, err := niftyshop.NewThresholds(cfg.ProfitThreshold, cfg.LossThreshold, cfg.DailyTradeLimit)
	if err != nil {
		logger.Error("invalid strategy thresholds", zap.Error(err))
		return err
	}
	strategy := niftyshop.NewStrategy(kite, thresholds, logger)

	recorder, err := orders.NewPaperRecorder(cfg.JournalDir, logger)
	if err != nil {
		logger.Error("failed to open order journal", zap.Error(err))
		return err
	}
	defer recorder.Close()

	bot := internal.NewTradingBot(kite, ranker, strategy, recorder, universe, cfg.TopN, logger)
	if err := bot.Run(ctx); err != nil {
		logger.Error("strategy run failed", zap.Error(err))
		return err
	}

	return nil
}
