// Package gate implements the deterministic EV viability gate that sits
// between a probabilistic trade signal and the execution pipeline.
package gate

import (
	"math"

	"github.com/quantfold/hedge-engine/internal/decay"
	"github.com/quantfold/hedge-engine/internal/observ"
)

// Signal is produced by an external signal generator and consumed read-only.
type Signal struct {
	PSuccess            float64        `json:"p_success"`
	PConfidence         *float64       `json:"p_confidence,omitempty"`
	HorizonDays         int            `json:"horizon_days,omitempty"`
	ExpectedDelta       ExpectedDelta  `json:"expected_delta"`
	SuggestedInstrument Instrument     `json:"suggested_instrument"`
	Rationale           string         `json:"rationale,omitempty"`
	Flags               map[string]bool `json:"flags,omitempty"`
}

type ExpectedDelta struct {
	Fav     float64 `json:"fav"`
	Neutral float64 `json:"neutral"`
	Unfav   float64 `json:"unfav"`
}

type Instrument struct {
	Type     string  `json:"type"`
	Ticker   string  `json:"ticker"`
	Leverage float64 `json:"leverage,omitempty"`
}

// Costs are the deterministic cost assumptions charged against gross EV.
type Costs struct {
	TradingCosts float64
	Slippage     float64
	SafetyMargin float64
}

// EVResult is immutable once computed and is stored verbatim in the
// decision record's quant_checks block for later replay validation.
type EVResult struct {
	EVGross       float64 `json:"ev_gross"`
	LETFDecay     float64 `json:"letf_decay"`
	EVNet         float64 `json:"ev_net"`
	ViabilityPass bool    `json:"viability_pass"`
	PConfidence   float64 `json:"p_confidence"`
	SafetyMargin  float64 `json:"safety_margin"`
	Notes         string  `json:"notes"`
}

// minConfidence is a hard gate independent of EV magnitude: a high-EV,
// low-confidence signal must fail and be routed to human review.
const minConfidence = 0.70

// Evaluate combines the signal with decay drag and cost estimates into a
// net EV and a pass/fail viability decision. Pure function of its inputs;
// decayStats may be nil when no simulation was run.
func Evaluate(sig Signal, decayStats *decay.Stats, costs Costs) EVResult {
	// Two-scenario EV. The neutral delta is accepted but intentionally not
	// weighted in, which keeps the stored EV trivial to recompute on replay.
	evGross := sig.PSuccess*sig.ExpectedDelta.Fav + (1-sig.PSuccess)*sig.ExpectedDelta.Unfav

	// Only value-destroying decay is charged; favorable drift is never
	// added back.
	drag := 0.0
	if decayStats != nil && decayStats.Mean < 0 {
		drag = -decayStats.Mean
	}

	evNet := evGross - drag - costs.TradingCosts - costs.Slippage

	pConf := 1.0
	if sig.PConfidence != nil {
		pConf = *sig.PConfidence
	}
	confOK := pConf >= minConfidence
	pass := evNet > costs.SafetyMargin && confOK

	notes := ""
	if !confOK {
		notes = "Low model confidence; human review recommended."
	} else if evNet <= costs.SafetyMargin {
		notes = "Net EV below safety margin."
	}

	observ.IncDecision(pass)
	return EVResult{
		EVGross:       evGross,
		LETFDecay:     drag,
		EVNet:         evNet,
		ViabilityPass: pass,
		PConfidence:   pConf,
		SafetyMargin:  costs.SafetyMargin,
		Notes:         notes,
	}
}

// ComputeTMax is a heuristic maximum safe holding horizon in trading days.
// Baselines: 5 days at 3x+, 10 days at 2x, 30 days otherwise, all quoted at
// 20% annual vol and rescaled by baseline_vol/est_vol_annual, clamped [1,90].
func ComputeTMax(leverage, estVolAnnual float64) int {
	if estVolAnnual <= 0 {
		estVolAnnual = 0.20 // pessimistic fallback
	}
	const baselineVol = 0.20

	var baseDays float64
	switch {
	case math.Abs(leverage) >= 3.0:
		baseDays = 5
	case math.Abs(leverage) >= 2.0:
		baseDays = 10
	default:
		baseDays = 30
	}

	days := int(math.Round(baseDays * baselineVol / estVolAnnual))
	if days < 1 {
		days = 1
	}
	if days > 90 {
		days = 90
	}
	return days
}
