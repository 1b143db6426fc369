package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFillsDefaults(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "sandbox.yaml"))
	require.NoError(t, err)

	// Explicit values win.
	require.Equal(t, "debug", c.LogLevel)
	require.Equal(t, 2_500_000.0, c.PortfolioNAV)
	require.Equal(t, 2.0, c.Decay.Leverage)
	require.Equal(t, int64(99), c.Decay.Seed)
	require.Equal(t, 0.02, c.Gate.SafetyMargin)
	require.Equal(t, "percent_of_adv=0.10", c.Execution.SORPolicy)
	require.Equal(t, 0.05, c.Planner.AllocFraction)
	require.Equal(t, "desk-ops", c.Audit.Signer)
	require.Equal(t, "SSO", c.Data.Ticker)

	// Omitted values pick up defaults.
	require.Equal(t, 0.0005, c.Gate.TradingCosts)
	require.Equal(t, 5.0, c.Execution.MaxSlippageBps)
	require.Equal(t, int64(7), c.Execution.Seed)
	require.Equal(t, 1000, c.Planner.TwapQtyThreshold)
	require.Equal(t, 6, c.Planner.TwapSlices)
	require.Equal(t, "data/sandbox_etf_prices.csv", c.Data.PricesCSV)
	require.Equal(t, 20, c.Data.ADVLookbackDays)
}

func TestLoadPreservesExplicitZero(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	body := "gate:\n  safety_margin: 0\n  trading_costs: 0\n"
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 0.0, c.Gate.SafetyMargin, "explicit zero must not be replaced by its default")
	require.Equal(t, 0.0, c.Gate.TradingCosts)
	// Keys absent from the file still get defaults.
	require.Equal(t, 0.0005, c.Gate.Slippage)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()

	write := func(body string) string {
		p := filepath.Join(dir, "cfg.yaml")
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	_, err := Load(write("execution:\n  mode: paper\n"))
	require.Error(t, err, "unknown mode must fail validation")

	_, err = Load(write("planner:\n  alloc_fraction: 1.5\n"))
	require.Error(t, err, "allocation above 100% must fail validation")

	_, err = Load(write("decay:\n  trials: -5\n"))
	require.Error(t, err, "negative trials must fail validation")

	_, err = Load(write("{not yaml"))
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	c := Default()
	require.Equal(t, "info", c.LogLevel)
	require.Equal(t, 3.0, c.Decay.Leverage)
	require.Equal(t, 20000, c.Decay.Trials)
	require.Equal(t, "sandbox", c.Execution.Mode)
	require.Equal(t, "percent_of_adv=0.05", c.Execution.SORPolicy)
	require.Equal(t, 0.01, c.Gate.SafetyMargin)
	require.Equal(t, "data/decisions", c.Audit.RecordDir)
	require.NoError(t, validate.Struct(&c), "defaults must validate")
}
