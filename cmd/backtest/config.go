package main

import (
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/tide-trading/pkg/errors"
)

// BacktestConfig drives one backtest run. Rates are fractions, not percents.
type BacktestConfig struct {
	StartingEquity decimal.Decimal `yaml:"starting_equity"`
	FeeRoundTrip   decimal.Decimal `yaml:"fee_round_trip"`
	FastPeriod     int             `yaml:"fast_period"`
	SlowPeriod     int             `yaml:"slow_period"`
	StopPct        decimal.Decimal `yaml:"stop_pct"`
	TargetPct      decimal.Decimal `yaml:"target_pct"`
	// Quantity fixes the order size; when zero, PositionPct of the starting
	// equity is used instead.
	Quantity    decimal.Decimal `yaml:"quantity"`
	PositionPct decimal.Decimal `yaml:"position_pct"`
}

func defaultConfig() BacktestConfig {
	return BacktestConfig{
		StartingEquity: decimal.NewFromInt(10000),
		FeeRoundTrip:   decimal.NewFromFloat(0.008),
		FastPeriod:     10,
		SlowPeriod:     30,
		StopPct:        decimal.NewFromFloat(0.02),
		TargetPct:      decimal.NewFromFloat(0.04),
		Quantity:       decimal.NewFromInt(1),
		PositionPct:    decimal.NewFromFloat(0.5),
	}
}

// loadConfig reads a yaml config, layering it over the defaults so partial
// files stay usable.
func loadConfig(path string) (BacktestConfig, error) {
	config := defaultConfig()

	if path == "" {
		return config, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return BacktestConfig{}, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "reading config %s", path)
	}

	if err := yaml.Unmarshal(raw, &config); err != nil {
		return BacktestConfig{}, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "parsing config %s", path)
	}

	if config.FastPeriod <= 0 || config.SlowPeriod <= config.FastPeriod {
		return BacktestConfig{}, errors.New(errors.ErrCodeInvalidParameter, "slow_period must be greater than fast_period, both positive")
	}

	return config, nil
}
