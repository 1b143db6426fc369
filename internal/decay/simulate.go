// Package decay simulates path-dependent leveraged-ETF compounding over
// multi-day holds via a bootstrap Monte Carlo over historical daily returns.
package decay

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/quantfold/hedge-engine/internal/observ"
)

var (
	ErrInvalidWindow       = errors.New("decay: window must be >= 1")
	ErrInvalidTrials       = errors.New("decay: trials must be > 0")
	ErrInsufficientHistory = errors.New("decay: return history shorter than window")
	ErrNegativeVol         = errors.New("decay: annual volatility must be non-negative")
)

// Stats summarizes the simulated T-day leveraged return distribution.
// Worst and Best are the min and max of the sampled set; the percentile
// fields are linearly interpolated order statistics.
type Stats struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	P10      float64 `json:"p10"`
	P25      float64 `json:"p25"`
	P75      float64 `json:"p75"`
	P90      float64 `json:"p90"`
	Worst    float64 `json:"worst"`
	Best     float64 `json:"best"`
	Trials   int     `json:"trials"`
	Window   int     `json:"window"`
	Leverage float64 `json:"leverage"`
}

const (
	// factorFloor clips a single day's leveraged factor so a pathological
	// move cannot drive the path product to zero or negative infinity.
	factorFloor = -0.999

	tradingDaysPerYear = 252
)

// Simulate bootstraps trials window-length slices from the historical return
// series, compounds the per-day leveraged factors and aggregates the
// distribution. Identical inputs and seed produce bit-identical Stats.
func Simulate(returns []float64, leverage float64, window, trials int, seed int64) (Stats, error) {
	if window < 1 {
		return Stats{}, ErrInvalidWindow
	}
	if trials <= 0 {
		return Stats{}, ErrInvalidTrials
	}
	n := len(returns)
	if n < window {
		return Stats{}, ErrInsufficientHistory
	}

	rng := rand.New(rand.NewSource(seed))
	results := make([]float64, trials)
	sum := 0.0
	for i := range results {
		start := rng.Intn(n - window + 1)
		prod := 1.0
		for _, r := range returns[start : start+window] {
			f := 1.0 + leverage*r
			if f < factorFloor {
				f = factorFloor
			}
			prod *= f
		}
		results[i] = prod - 1.0
		sum += results[i]
	}
	observ.AddDecayTrials(trials)

	sorted := append([]float64(nil), results...)
	sort.Float64s(sorted)

	return Stats{
		Mean:     sum / float64(trials),
		Median:   percentile(sorted, 50),
		P10:      percentile(sorted, 10),
		P25:      percentile(sorted, 25),
		P75:      percentile(sorted, 75),
		P90:      percentile(sorted, 90),
		Worst:    sorted[0],
		Best:     sorted[len(sorted)-1],
		Trials:   trials,
		Window:   window,
		Leverage: leverage,
	}, nil
}

// percentile interpolates linearly between order statistics of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

// AnalyticDecay approximates the expected decay fraction over a horizon from
// annualized volatility, via expected_factor ≈ exp((λ-λ²)·σ²·T/2). It is a
// sanity cross-check for the Monte Carlo, not an input to the viability gate.
func AnalyticDecay(leverage, volAnnual float64, horizonDays int) (float64, error) {
	if volAnnual < 0 {
		return 0, ErrNegativeVol
	}
	T := float64(horizonDays) / tradingDaysPerYear
	exponent := (leverage - leverage*leverage) * volAnnual * volAnnual * T / 2
	expected := math.Exp(exponent)
	if expected < 1 {
		return 1 - expected, nil
	}
	return 0, nil
}

// ReturnsFromPrices converts an ascending price series into simple daily
// returns, skipping non-finite or non-positive reference prices.
func ReturnsFromPrices(prices []float64) []float64 {
	out := make([]float64, 0, len(prices))
	prev := math.NaN()
	for _, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		if !math.IsNaN(prev) && prev > 0 {
			out = append(out, p/prev-1)
		}
		prev = p
	}
	return out
}
