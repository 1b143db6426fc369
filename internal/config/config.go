package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Decay struct {
	Leverage   float64 `yaml:"leverage" default:"3.0" validate:"ne=0"`
	WindowDays int     `yaml:"window_days" default:"5" validate:"gte=1"`
	Trials     int     `yaml:"trials" default:"20000" validate:"gt=0"`
	Seed       int64   `yaml:"seed" default:"42"`
}

type Gate struct {
	TradingCosts float64 `yaml:"trading_costs" default:"0.0005" validate:"gte=0"`
	Slippage     float64 `yaml:"slippage" default:"0.0005" validate:"gte=0"`
	SafetyMargin float64 `yaml:"safety_margin" default:"0.01"`
}

type Execution struct {
	Mode            string  `yaml:"mode" default:"sandbox" validate:"oneof=sandbox live"`
	MaxSlippageBps  float64 `yaml:"max_slippage_bps" default:"5" validate:"gte=0"`
	SORPolicy       string  `yaml:"sor_policy" default:"percent_of_adv=0.05"`
	SlicesPerSecond float64 `yaml:"slices_per_second"` // 0 disables pacing
	Seed            int64   `yaml:"seed" default:"7"`
}

type Planner struct {
	AllocFraction       float64 `yaml:"alloc_fraction" default:"0.02" validate:"gt=0,lte=1"`
	TwapQtyThreshold    int     `yaml:"twap_qty_threshold" default:"1000" validate:"gte=0"`
	TwapDurationMinutes int     `yaml:"twap_duration_minutes" default:"30" validate:"gt=0"`
	TwapSlices          int     `yaml:"twap_slices" default:"6" validate:"gt=0"`
	TargetAnnualVol     float64 `yaml:"target_annual_vol" validate:"gte=0"` // 0 disables vol targeting
}

type Audit struct {
	RecordDir string `yaml:"record_dir" default:"data/decisions"`
	Signer    string `yaml:"signer"`
}

type Data struct {
	PricesCSV       string `yaml:"prices_csv" default:"data/sandbox_etf_prices.csv"`
	Ticker          string `yaml:"ticker" default:"SPY"`
	ADVLookbackDays int    `yaml:"adv_lookback_days" default:"20" validate:"gt=0"`
}

type Root struct {
	LogLevel     string    `yaml:"log_level" default:"info"`
	MetricsAddr  string    `yaml:"metrics_addr"` // empty disables the /metrics listener
	PortfolioNAV float64   `yaml:"portfolio_nav" default:"1000000" validate:"gt=0"`
	Decay        Decay     `yaml:"decay"`
	Gate         Gate      `yaml:"gate"`
	Execution    Execution `yaml:"execution"`
	Planner      Planner   `yaml:"planner"`
	Audit        Audit     `yaml:"audit"`
	Data         Data      `yaml:"data"`
}

var validate = validator.New()

// Load reads a YAML config file, fills defaults and validates the result.
// Defaults are applied before parsing so a key present in the file always
// wins, including explicit zeros (e.g. safety_margin: 0).
func Load(path string) (Root, error) {
	var c Root
	if err := defaults.Set(&c); err != nil {
		return c, fmt.Errorf("apply defaults: %w", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	if err := validate.Struct(&c); err != nil {
		return c, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Default returns the configuration used when no file is supplied.
func Default() Root {
	var c Root
	_ = defaults.Set(&c)
	return c
}
