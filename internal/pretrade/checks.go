// Package pretrade holds deterministic pre-trade gates: liquidity and
// spread filters, the approved-instrument universe, and notional caps.
package pretrade

import (
	"github.com/quantfold/hedge-engine/internal/gate"
)

// Metrics are the liquidity observations for one ticker.
type Metrics struct {
	ADV       float64  `json:"adv"` // average daily dollar volume
	SpreadBps float64  `json:"spread_bps"`
	AskSize   *float64 `json:"ask_size,omitempty"`
}

// Limits configures the gates. Zero-value fields fall back to conservative
// defaults; optional caps are nil when unenforced.
type Limits struct {
	ADVThresholdUSD float64
	MaxSpreadBps    float64
	MinAskSize      *float64
	MaxNotionalUSD  *float64
	Universe        []string
}

const (
	defaultADVThresholdUSD = 1_000_000
	defaultMaxSpreadBps    = 5.0
)

// PassLiquidity applies the ADV, spread and optional displayed-size filters.
func PassLiquidity(m Metrics, l Limits) bool {
	threshold := l.ADVThresholdUSD
	if threshold == 0 {
		threshold = defaultADVThresholdUSD
	}
	maxSpread := l.MaxSpreadBps
	if maxSpread == 0 {
		maxSpread = defaultMaxSpreadBps
	}

	if m.ADV < threshold {
		return false
	}
	if m.SpreadBps > maxSpread {
		return false
	}
	if l.MinAskSize != nil {
		if m.AskSize == nil || *m.AskSize < *l.MinAskSize {
			return false
		}
	}
	return true
}

// InstrumentAllowed reports whether the ticker is in the approved universe.
func InstrumentAllowed(ticker string, universe []string) bool {
	if ticker == "" {
		return false
	}
	for _, t := range universe {
		if t == ticker {
			return true
		}
	}
	return false
}

func NotionalUSD(qty, price float64) float64 {
	return qty * price
}

// ViabilityCheck is the combined gate result with per-failure reasons.
type ViabilityCheck struct {
	Allowed     bool     `json:"allowed"`
	Reasons     []string `json:"reasons"`
	NotionalUSD float64  `json:"notional_usd"`
}

// CheckInstrument combines universe, liquidity and notional gates. Pass a
// zero qty or price when sizing is not yet known; the notional cap is then
// skipped.
func CheckInstrument(inst gate.Instrument, qty, price float64, m Metrics, l Limits) ViabilityCheck {
	out := ViabilityCheck{Allowed: true, Reasons: []string{}}

	if !InstrumentAllowed(inst.Ticker, l.Universe) {
		out.Allowed = false
		out.Reasons = append(out.Reasons, "instrument not in allowed universe")
	}
	if !PassLiquidity(m, l) {
		out.Allowed = false
		out.Reasons = append(out.Reasons, "failed liquidity/spread filters")
	}
	if qty > 0 && price > 0 {
		out.NotionalUSD = NotionalUSD(qty, price)
		if l.MaxNotionalUSD != nil && out.NotionalUSD > *l.MaxNotionalUSD {
			out.Allowed = false
			out.Reasons = append(out.Reasons, "exceeds max notional limit")
		}
	}
	return out
}
