// Package risk provides deterministic position-sizing and tail-risk helpers:
// volatility targeting, parametric and historical VaR, stop-loss levels and
// drawdown triggers. All functions are pure and favor auditability over
// statistical sophistication.
package risk

import (
	"errors"
	"math"
	"sort"
)

const tradingDaysPerYear = 252

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

var ErrInvalidAlpha = errors.New("risk: alpha must be in (0,1)")

// AnnualizedVol computes annualized volatility from daily returns using the
// sample standard deviation.
func AnnualizedVol(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	ss := 0.0
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	dailyStd := math.Sqrt(ss / float64(len(returns)-1))
	return dailyStd * math.Sqrt(tradingDaysPerYear)
}

// ScaleFactor returns target_vol/recent_vol clamped to [minScale, maxScale],
// along with the recent annualized vol it observed. A flat series scales 1.0.
func ScaleFactor(targetAnnualVol float64, returns []float64, minScale, maxScale float64) (float64, float64) {
	recent := AnnualizedVol(returns)
	if recent <= 0 {
		return 1.0, recent
	}
	scale := targetAnnualVol / recent
	if scale < minScale {
		scale = minScale
	}
	if scale > maxScale {
		scale = maxScale
	}
	return scale, recent
}

// ParametricVaR computes a 1-day variance-covariance VaR under a normal
// approximation: VaR_alpha = -(mu + z_alpha * sigma). Returned as a positive
// fraction of capital, floored at zero.
func ParametricVaR(returns []float64, alpha float64) (float64, error) {
	if alpha <= 0 || alpha >= 1 {
		return 0, ErrInvalidAlpha
	}
	if len(returns) < 2 {
		return 0, nil
	}
	mu := 0.0
	for _, r := range returns {
		mu += r
	}
	mu /= float64(len(returns))
	ss := 0.0
	for _, r := range returns {
		d := r - mu
		ss += d * d
	}
	sigma := math.Sqrt(ss / float64(len(returns)-1))
	// Lower-tail quantile: z is negative for small alpha, so the loss
	// -(mu + z*sigma) comes out positive.
	z := inverseNormalCDF(alpha)
	v := -(mu + z*sigma)
	if v < 0 {
		v = 0
	}
	return v, nil
}

// HistoricalVaR is the empirical alpha-percentile loss of the return series,
// as a positive fraction.
func HistoricalVaR(returns []float64, alpha float64) (float64, error) {
	if alpha <= 0 || alpha >= 1 {
		return 0, ErrInvalidAlpha
	}
	if len(returns) == 0 {
		return 0, nil
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	worst := percentile(sorted, alpha*100)
	if worst >= 0 {
		return 0, nil
	}
	return -worst, nil
}

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

// StopLossPrice is the trigger price for a protective stop.
func StopLossPrice(entryPrice, stopLossPct float64, side Side) float64 {
	if side == SideShort {
		return entryPrice * (1 + math.Abs(stopLossPct))
	}
	return entryPrice * (1 - math.Abs(stopLossPct))
}

// DrawdownTriggered reports whether the drawdown from peak NAV breaches the
// emergency threshold. A non-positive peak never triggers.
func DrawdownTriggered(currentNAV, peakNAV, triggerDrawdown float64) bool {
	if peakNAV <= 0 {
		return false
	}
	return (peakNAV-currentNAV)/peakNAV >= triggerDrawdown
}

// VolTarget carries a volatility-targeted notional plus diagnostics.
type VolTarget struct {
	ScaledNotional  float64 `json:"scaled_notional"`
	ScaleFactor     float64 `json:"scale_factor"`
	RecentAnnualVol float64 `json:"recent_annual_vol"`
}

// VolatilityTargetedNotional scales a base notional by target_vol/recent_vol
// with the scale clamped to [minScale, maxScale].
func VolatilityTargetedNotional(baseNotional, targetAnnualVol float64, recentReturns []float64, minScale, maxScale float64) VolTarget {
	scale, recent := ScaleFactor(targetAnnualVol, recentReturns, minScale, maxScale)
	return VolTarget{
		ScaledNotional:  baseNotional * scale,
		ScaleFactor:     scale,
		RecentAnnualVol: recent,
	}
}

// inverseNormalCDF approximates the standard normal quantile with the Acklam
// rational approximation. Adequate precision for risk gating without pulling
// in a stats dependency. Valid on (0,1); callers validate p.
func inverseNormalCDF(p float64) float64 {
	a := [6]float64{
		-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00,
	}
	b := [5]float64{
		-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01,
	}
	c := [6]float64{
		-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00,
	}
	d := [4]float64{
		7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00,
	}

	const plow = 0.02425
	const phigh = 1 - plow

	switch {
	case p < plow:
		q := math.Sqrt(-2 * math.Log(p))
		num := ((((c[0]*q+c[1])*q+c[2])*q+c[3])*q + c[4]) * q + c[5]
		den := (((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1
		return num / den
	case p > phigh:
		q := math.Sqrt(-2 * math.Log(1-p))
		num := ((((c[0]*q+c[1])*q+c[2])*q+c[3])*q + c[4]) * q + c[5]
		den := (((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1
		return -num / den
	default:
		q := p - 0.5
		r := q * q
		num := ((((a[0]*r+a[1])*r+a[2])*r+a[3])*r + a[4]) * r + a[5]
		den := ((((b[0]*r+b[1])*r+b[2])*r+b[3])*r + b[4]) * r + 1
		return q * num / den
	}
}
