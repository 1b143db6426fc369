// Package planner turns a viable decision record plus portfolio NAV and a
// current price map into an execution plan. Sizing uses a fixed allocation
// fraction of NAV, optionally scaled by volatility targeting; large or
// leveraged orders are routed as TWAP, everything else goes out as MARKET.
package planner

import (
	"math"
	"strings"

	"github.com/quantfold/hedge-engine/internal/execution"
	"github.com/quantfold/hedge-engine/internal/record"
	"github.com/quantfold/hedge-engine/internal/risk"
)

type Config struct {
	AllocFraction       float64
	TwapQtyThreshold    int
	TwapDurationMinutes int
	TwapSlices          int
	SORPolicy           string
	MaxSlippageBps      float64

	// TargetAnnualVol enables volatility-targeted sizing when positive;
	// RecentReturns supplies the series the scale factor is computed from.
	TargetAnnualVol float64
	RecentReturns   []float64
}

const (
	defaultAllocFraction = 0.02
	fallbackPrice        = 100.0
	minVolScale          = 0.3
	maxVolScale          = 2.0
)

// BuildPlan derives the single-order plan for a decision record. The caller
// is expected to have passed the viability gate already; the planner does
// not re-check it.
func BuildPlan(rec *record.DecisionRecord, portfolioNAV float64, priceMap map[string]float64, cfg Config) execution.Plan {
	alloc := cfg.AllocFraction
	if alloc <= 0 {
		alloc = defaultAllocFraction
	}
	threshold := cfg.TwapQtyThreshold
	if threshold <= 0 {
		threshold = 1000
	}
	duration := cfg.TwapDurationMinutes
	if duration <= 0 {
		duration = 30
	}
	slices := cfg.TwapSlices
	if slices <= 0 {
		slices = 6
	}
	maxSlip := cfg.MaxSlippageBps
	if maxSlip <= 0 {
		maxSlip = 5
	}

	ticker := "SPY"
	instType := ""
	if rec.Signal != nil && rec.Signal.SuggestedInstrument.Ticker != "" {
		ticker = rec.Signal.SuggestedInstrument.Ticker
		instType = rec.Signal.SuggestedInstrument.Type
	}

	targetNotional := portfolioNAV * alloc
	if cfg.TargetAnnualVol > 0 {
		vt := risk.VolatilityTargetedNotional(targetNotional, cfg.TargetAnnualVol, cfg.RecentReturns, minVolScale, maxVolScale)
		targetNotional = vt.ScaledNotional
	}

	price := priceMap[ticker]
	if price <= 0 {
		price = fallbackPrice
	}
	qty := int(math.Round(targetNotional / price))
	if qty < 1 {
		qty = 1
	}

	order := execution.Order{
		Ticker: ticker,
		Side:   execution.SideBuy,
		Qty:    qty,
		Type:   execution.OrderMarket,
	}
	if qty > threshold || strings.EqualFold(instType, "LETF") {
		order.Type = execution.OrderAlgo
		order.Algo = "TWAP"
		order.DurationMinutes = duration
		order.Slices = slices
	}

	sor := execution.DefaultSORPolicy()
	if cfg.SORPolicy != "" {
		sor = execution.ParseSORPolicy(cfg.SORPolicy)
	}
	return execution.Plan{
		Orders:         []execution.Order{order},
		SORPolicy:      sor,
		MaxSlippageBps: maxSlip,
	}
}
