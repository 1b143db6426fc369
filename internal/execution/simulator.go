// Package execution simulates order fills against a liquidity and
// participation model. It is a sandbox: deterministic given a seed, never
// connected to a broker, and intended for decision auditing and operator
// training. Per-order failures (bad quantity, missing limit) are modeled as
// statuses, not errors, so one bad order cannot abort a multi-order plan.
package execution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"golang.org/x/time/rate"

	"github.com/quantfold/hedge-engine/internal/observ"
)

const (
	minutesPerDay      = 390.0
	defaultSlippageBps = 5.0
	defaultDuration    = 30
	defaultSlices      = 6
	fallbackPrice      = 100.0
)

var ErrUnsupportedMode = errors.New("execution: only sandbox mode is implemented")

type Config struct {
	Mode string // "sandbox" is the only implemented mode
	// SlicesPerSecond paces TWAP child orders to model elapsed sandbox
	// time. Zero disables pacing so tests and replays run instantly.
	SlicesPerSecond float64
}

type Simulator struct {
	mode  string
	pacer *rate.Limiter
}

func NewSimulator(cfg Config) *Simulator {
	mode := cfg.Mode
	if mode == "" {
		mode = "sandbox"
	}
	var pacer *rate.Limiter
	if cfg.SlicesPerSecond > 0 {
		pacer = rate.NewLimiter(rate.Limit(cfg.SlicesPerSecond), 1)
	}
	return &Simulator{mode: mode, pacer: pacer}
}

// Execute simulates every order in the plan against the market snapshot.
// The seed fully determines fill prices: identical plan, snapshot and seed
// produce an identical report.
func (s *Simulator) Execute(ctx context.Context, plan Plan, snapshot map[string]MarketInfo, seed int64) (FillReport, error) {
	if s.mode != "sandbox" {
		return FillReport{}, fmt.Errorf("%w: mode %q", ErrUnsupportedMode, s.mode)
	}

	rng := rand.New(rand.NewSource(seed))
	sor := plan.SORPolicy
	if sor.Mode == "" {
		sor = DefaultSORPolicy()
	}
	maxSlip := plan.MaxSlippageBps
	if maxSlip <= 0 {
		maxSlip = defaultSlippageBps
	}

	report := FillReport{Status: "ok", Fills: make([]OrderFill, 0, len(plan.Orders))}
	for _, o := range plan.Orders {
		mi := snapshot[o.Ticker]
		price := mi.Price
		if price <= 0 {
			if o.Limit != nil {
				price = *o.Limit
			} else {
				price = fallbackPrice
			}
		}

		res := s.executeOrder(ctx, o, price, mi.ADV, sor.Percent, maxSlip, rng)
		observ.IncOrder(o.Type.String(), res.Status)

		report.Metrics.TotalRequested += o.Qty
		report.Metrics.TotalFilled += res.FilledQty
		if res.AvgFillPrice != nil {
			report.Metrics.NotionalFilledUSD += float64(res.FilledQty) * *res.AvgFillPrice
		}
		report.Fills = append(report.Fills, res)
	}
	observ.SetFillNotional(report.Metrics.NotionalFilledUSD)
	return report, nil
}

func (s *Simulator) executeOrder(ctx context.Context, o Order, price, advUSD, participation, maxSlip float64, rng *rand.Rand) OrderFill {
	switch {
	case o.Type == OrderAlgo || strings.EqualFold(o.Algo, "TWAP"):
		return s.executeTWAP(ctx, o, price, advUSD, participation, maxSlip, rng)
	case o.Type == OrderMarket:
		return executeMarket(o, price, maxSlip, rng)
	case o.Type == OrderLimit:
		return executeLimit(o, price, maxSlip, rng)
	default:
		observ.Warn("order_type_unknown", map[string]any{"ticker": o.Ticker})
		return OrderFill{Ticker: o.Ticker, RequestedQty: o.Qty, Status: StatusInvalidOrder, Fills: []SliceFill{}}
	}
}

// fillPrice applies slippage with deterministic jitter around the reference:
// ref * (1 ± bps*(1+U[-0.25,0.25])/10000), worse for the taker.
func fillPrice(ref float64, side Side, slippageBps float64, rng *rand.Rand) float64 {
	sign := 1.0
	if strings.EqualFold(string(side), string(SideSell)) {
		sign = -1.0
	}
	jitter := -0.25 + 0.5*rng.Float64()
	slip := slippageBps * (1 + jitter) / 10000
	return ref * (1 + sign*slip)
}

func executeMarket(o Order, marketPrice, maxSlip float64, rng *rand.Rand) OrderFill {
	if o.Qty <= 0 {
		return OrderFill{Ticker: o.Ticker, Status: StatusInvalidOrder, Fills: []SliceFill{}}
	}
	p := fillPrice(marketPrice, o.Side, maxSlip, rng)
	return OrderFill{
		Ticker:       o.Ticker,
		RequestedQty: o.Qty,
		FilledQty:    o.Qty,
		AvgFillPrice: &p,
		Status:       StatusFilled,
		Fills:        []SliceFill{{Requested: o.Qty, Filled: o.Qty, Price: &p, Status: StatusFilled}},
	}
}

// executeLimit runs a marketable test: BUY fills only when limit >= market,
// SELL only when limit <= market. Marketable limits fill in full at a price
// anchored to the limit; resting orders are not persisted across calls.
func executeLimit(o Order, marketPrice, maxSlip float64, rng *rand.Rand) OrderFill {
	res := OrderFill{Ticker: o.Ticker, RequestedQty: o.Qty, Status: StatusNotFilled, Fills: []SliceFill{}}
	if o.Limit == nil || o.Qty <= 0 {
		res.Status = StatusInvalidOrder
		return res
	}

	marketable := *o.Limit >= marketPrice
	if strings.EqualFold(string(o.Side), string(SideSell)) {
		marketable = *o.Limit <= marketPrice
	}
	if !marketable {
		res.Status = StatusNoFill
		return res
	}

	p := fillPrice(*o.Limit, o.Side, maxSlip, rng)
	res.FilledQty = o.Qty
	res.AvgFillPrice = &p
	res.Status = StatusFilled
	res.Fills = append(res.Fills, SliceFill{Requested: o.Qty, Filled: o.Qty, Price: &p, Status: StatusFilled})
	return res
}

// executeTWAP splits the order into equal slices over the duration. Each
// slice is capped by the participation policy; a zero cap still force-allows
// a single share so tiny-ADV snapshots cannot deadlock the simulation.
func (s *Simulator) executeTWAP(ctx context.Context, o Order, marketPrice, advUSD, participation, maxSlip float64, rng *rand.Rand) OrderFill {
	out := OrderFill{Ticker: o.Ticker, RequestedQty: o.Qty, Status: StatusNoFill, Fills: []SliceFill{}}
	if o.Qty <= 0 {
		return out
	}

	duration := o.DurationMinutes
	if duration <= 0 {
		duration = defaultDuration
	}
	slices := o.Slices
	if slices <= 0 {
		slices = defaultSlices
	}
	if o.PercentOfADV != nil {
		participation = *o.PercentOfADV
	}

	sliceMinutes := float64(duration) / float64(slices)
	intended := (o.Qty + slices - 1) / slices
	remaining := o.Qty
	sumPx := 0.0

	for i := 0; i < slices; i++ {
		if s.pacer != nil {
			if err := s.pacer.Wait(ctx); err != nil {
				break
			}
		}

		allowed := sliceCapacity(advUSD, participation, sliceMinutes, marketPrice)
		if allowed > intended {
			allowed = intended
		}
		if allowed <= 0 && remaining > 0 {
			allowed = 1 // liquidity floor
		}

		fillQty := allowed
		if fillQty > remaining {
			fillQty = remaining
		}
		if fillQty <= 0 {
			out.Fills = append(out.Fills, SliceFill{Slice: i + 1, Requested: intended, Status: StatusNotFilled})
			continue
		}

		p := fillPrice(marketPrice, o.Side, maxSlip, rng)
		out.Fills = append(out.Fills, SliceFill{Slice: i + 1, Requested: intended, Filled: fillQty, Price: &p, Status: StatusFilled})
		sumPx += float64(fillQty) * p
		remaining -= fillQty
		if remaining <= 0 {
			break
		}
	}

	out.FilledQty = o.Qty - remaining
	switch {
	case out.FilledQty >= o.Qty:
		out.Status = StatusFilled
	case out.FilledQty > 0:
		out.Status = StatusPartial
	}
	if out.FilledQty > 0 {
		avg := sumPx / float64(out.FilledQty)
		out.AvgFillPrice = &avg
	}
	return out
}

// sliceCapacity converts dollar ADV and a participation rate into a
// per-slice share cap: floor((adv/390 * sliceMinutes * pct) / price).
func sliceCapacity(advUSD, participation, sliceMinutes, price float64) int {
	if advUSD <= 0 || price <= 0 {
		return 0
	}
	allowedUSD := advUSD / minutesPerDay * sliceMinutes * participation
	return int(math.Floor(allowedUSD / price))
}
