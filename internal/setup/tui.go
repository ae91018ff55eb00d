// Package setup provides the interactive configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// GeneratedConfigFile is where the wizard writes its output.
const GeneratedConfigFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1)
)

type generatedConfig struct {
	TopN            int    `yaml:"top_n"`
	DailyTradeLimit int    `yaml:"daily_trade_limit"`
	ProfitThreshold string `yaml:"profit_threshold_for_selling"`
	LossThreshold   string `yaml:"loss_threshold_for_averaging"`
}

// RunTUI walks the user through the strategy parameters and writes them to
// config.gen.yaml. Universe, window and lookback keep their defaults; edit the
// generated file to change those.
func RunTUI() error {
	dailyLimitStr := "1"
	topNStr := "5"
	profitThresholdStr := "5"
	lossThresholdStr := "-3"
	confirm := true

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("NIFTY SHOP SETUP"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Configure the trading strategy.\n"))

	fmt.Println(stepStyle.Render("STEP 1: CANDIDATES"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Top candidates").
				Description("How many most-fallen stocks to rank each run").
				Value(&topNStr).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Daily trade limit").
				Description("Maximum new positions to open per run").
				Value(&dailyLimitStr).
				Validate(validatePositiveInt),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Println(stepStyle.Render("STEP 2: THRESHOLDS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Profit threshold %").
				Description("Sell a holding when its gain exceeds this (positive, e.g. 5)").
				Value(&profitThresholdStr).
				Validate(validatePositiveDecimal),
			huh.NewInput().
				Title("Loss threshold %").
				Description("Average down a holding at or below this change (negative, e.g. -3)").
				Value(&lossThresholdStr).
				Validate(validateNegativeDecimal),
		),
	).Run()
	if err != nil {
		return err
	}

	summary := fmt.Sprintf(
		"Top candidates:     %s\nDaily trade limit:  %s\nProfit threshold:   %s%%\nLoss threshold:     %s%%",
		topNStr, dailyLimitStr, profitThresholdStr, lossThresholdStr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled")
	}

	topN, _ := strconv.Atoi(topNStr)
	dailyLimit, _ := strconv.Atoi(dailyLimitStr)
	data, err := yaml.Marshal(generatedConfig{
		TopN:            topN,
		DailyTradeLimit: dailyLimit,
		ProfitThreshold: profitThresholdStr,
		LossThreshold:   lossThresholdStr,
	})
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := os.WriteFile(GeneratedConfigFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(
		fmt.Sprintf("\nConfiguration saved to %s", GeneratedConfigFile)))
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n < 1 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}

func validatePositiveDecimal(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateNegativeDecimal(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if d.GreaterThanOrEqual(decimal.Zero) {
		return fmt.Errorf("must be negative")
	}
	return nil
}
