// Package config loads and validates the strategy configuration.
package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/itsnitinr/zerodha-algo-trading/internal/domain"
)

const (
	defaultTopN             = 5
	defaultMAWindow         = 20
	defaultLookbackDays     = 60
	defaultDailyTradeLimit  = 1
	defaultFetchConcurrency = 5
	defaultJournalDir       = "./journal"
)

var (
	defaultProfitThreshold = decimal.NewFromInt(5)
	defaultLossThreshold   = decimal.NewFromInt(-3)
)

// Config holds all strategy parameters for one run. It is loaded once and
// immutable while the run is in progress.
type Config struct {
	// Universe is the ordered set of symbols to screen.
	Universe []string
	// TopN is the number of most-deviated candidates to select.
	TopN int
	// MAWindow is the moving average window in trading days.
	MAWindow int
	// LookbackDays is the calendar window fetched per symbol. It must cover at
	// least three times the trading-day window to ride out weekends and
	// holidays.
	LookbackDays int
	// DailyTradeLimit caps new-position buys per run.
	DailyTradeLimit int
	// ProfitThreshold is the percent gain above which a holding is sold.
	ProfitThreshold decimal.Decimal
	// LossThreshold is the percent fall (negative) at or below which a held
	// symbol becomes eligible for averaging down.
	LossThreshold decimal.Decimal
	// FetchConcurrency bounds parallel per-symbol history fetches.
	FetchConcurrency int
	// JournalDir is where the paper order journal lives.
	JournalDir string
}

type configTmp struct {
	Universe            []string `yaml:"universe,omitempty"`
	TopN                int      `yaml:"top_n,omitempty"`
	MAWindow            int      `yaml:"ma_window,omitempty"`
	LookbackDays        int      `yaml:"lookback_days,omitempty"`
	DailyTradeLimit     int      `yaml:"daily_trade_limit,omitempty"`
	ProfitThresholdStr  string   `yaml:"profit_threshold_for_selling,omitempty"`
	LossThresholdStr    string   `yaml:"loss_threshold_for_averaging,omitempty"`
	FetchConcurrency    int      `yaml:"fetch_concurrency,omitempty"`
	JournalDir          string   `yaml:"journal_dir,omitempty"`
}

// Default returns the reference configuration: Nifty 50 universe, 20-day
// average over a 60-day calendar window, top 5 candidates, one new buy per day,
// sell above +5%, average down at or below -3%.
func Default() Config {
	return Config{
		Universe:         domain.NiftyFifty,
		TopN:             defaultTopN,
		MAWindow:         defaultMAWindow,
		LookbackDays:     defaultLookbackDays,
		DailyTradeLimit:  defaultDailyTradeLimit,
		ProfitThreshold:  defaultProfitThreshold,
		LossThreshold:    defaultLossThreshold,
		FetchConcurrency: defaultFetchConcurrency,
		JournalDir:       defaultJournalDir,
	}
}

// Load reads a yaml config from path, filling omitted fields with defaults.
// An empty path yields the default configuration. The returned config is
// always validated; invalid values are rejected, never clamped.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config %s", path)
		}

		var tmp configTmp
		if err := yaml.Unmarshal(f, &tmp); err != nil {
			return Config{}, errors.Wrapf(err, "failed to parse config %s", path)
		}

		if err := cfg.apply(tmp); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

func (c *Config) apply(tmp configTmp) error {
	if len(tmp.Universe) > 0 {
		c.Universe = tmp.Universe
	}
	if tmp.TopN != 0 {
		c.TopN = tmp.TopN
	}
	if tmp.MAWindow != 0 {
		c.MAWindow = tmp.MAWindow
	}
	if tmp.LookbackDays != 0 {
		c.LookbackDays = tmp.LookbackDays
	}
	if tmp.DailyTradeLimit != 0 {
		c.DailyTradeLimit = tmp.DailyTradeLimit
	}
	if tmp.ProfitThresholdStr != "" {
		v, err := decimal.NewFromString(tmp.ProfitThresholdStr)
		if err != nil {
			return fmt.Errorf("incorrect 'profit_threshold_for_selling' param in yaml config (must be a decimal): %w", err)
		}
		c.ProfitThreshold = v
	}
	if tmp.LossThresholdStr != "" {
		v, err := decimal.NewFromString(tmp.LossThresholdStr)
		if err != nil {
			return fmt.Errorf("incorrect 'loss_threshold_for_averaging' param in yaml config (must be a decimal): %w", err)
		}
		c.LossThreshold = v
	}
	if tmp.FetchConcurrency != 0 {
		c.FetchConcurrency = tmp.FetchConcurrency
	}
	if tmp.JournalDir != "" {
		c.JournalDir = tmp.JournalDir
	}
	return nil
}

// Validate enforces the configuration invariants. The run must not proceed
// when any of them is violated.
func (c Config) Validate() error {
	if _, err := domain.NewUniverse(c.Universe); err != nil {
		return err
	}
	if c.TopN < 1 {
		return fmt.Errorf("top_n must be >= 1, got %d", c.TopN)
	}
	if c.MAWindow < 2 {
		return fmt.Errorf("ma_window must be >= 2, got %d", c.MAWindow)
	}
	if c.LookbackDays < 3*c.MAWindow {
		return fmt.Errorf("lookback_days must be >= 3x ma_window (%d), got %d", 3*c.MAWindow, c.LookbackDays)
	}
	if c.DailyTradeLimit < 1 {
		return fmt.Errorf("daily_trade_limit must be >= 1, got %d", c.DailyTradeLimit)
	}
	if c.ProfitThreshold.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("profit_threshold_for_selling must be positive, got %s", c.ProfitThreshold.String())
	}
	if c.LossThreshold.GreaterThanOrEqual(decimal.Zero) {
		return fmt.Errorf("loss_threshold_for_averaging must be negative, got %s", c.LossThreshold.String())
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("fetch_concurrency must be >= 1, got %d", c.FetchConcurrency)
	}
	if c.JournalDir == "" {
		return fmt.Errorf("journal_dir must not be empty")
	}
	return nil
}
