package execution

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

func f64(v float64) *float64 { return &v }

func snapshot(price, advUSD float64) map[string]MarketInfo {
	return map[string]MarketInfo{"SSO": {Price: price, ADV: advUSD}}
}

func execOne(t *testing.T, o Order, snap map[string]MarketInfo, seed int64) OrderFill {
	t.Helper()
	sim := NewSimulator(Config{})
	report, err := sim.Execute(context.Background(), Plan{Orders: []Order{o}}, snap, seed)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(report.Fills) != 1 {
		t.Fatalf("got %d fills, want 1", len(report.Fills))
	}
	return report.Fills[0]
}

func TestMarketOrderFillsInFull(t *testing.T) {
	res := execOne(t, Order{Ticker: "SSO", Side: SideBuy, Qty: 100, Type: OrderMarket}, snapshot(100, 50e6), 7)
	if res.Status != StatusFilled || res.FilledQty != 100 {
		t.Fatalf("got status %q filled %d", res.Status, res.FilledQty)
	}
	if res.AvgFillPrice == nil {
		t.Fatal("filled order must carry an average price")
	}
	// BUY slippage is adverse: bounded by bps*(1±0.25)/1e4 above reference.
	lo, hi := 100*(1+0.75*5.0/1e4), 100*(1+1.25*5.0/1e4)
	if *res.AvgFillPrice < lo || *res.AvgFillPrice > hi {
		t.Fatalf("fill price %.6f outside [%.6f, %.6f]", *res.AvgFillPrice, lo, hi)
	}
}

func TestSellSlippageIsAdverse(t *testing.T) {
	res := execOne(t, Order{Ticker: "SSO", Side: SideSell, Qty: 50, Type: OrderMarket}, snapshot(100, 50e6), 7)
	if res.AvgFillPrice == nil || *res.AvgFillPrice >= 100 {
		t.Fatalf("SELL must fill below reference, got %v", res.AvgFillPrice)
	}
}

func TestNonPositiveQtyIsInvalid(t *testing.T) {
	res := execOne(t, Order{Ticker: "SSO", Side: SideBuy, Qty: 0, Type: OrderMarket}, snapshot(100, 50e6), 7)
	if res.Status != StatusInvalidOrder {
		t.Fatalf("got status %q", res.Status)
	}
}

func TestUnknownOrderTypeIsInvalid(t *testing.T) {
	res := execOne(t, Order{Ticker: "SSO", Side: SideBuy, Qty: 100, Type: OrderUnknown}, snapshot(100, 50e6), 7)
	if res.Status != StatusInvalidOrder || res.FilledQty != 0 {
		t.Fatalf("unknown type must not fill: %+v", res)
	}
}

func TestLimitOrderMarketableTest(t *testing.T) {
	snap := snapshot(100, 50e6)

	// BUY below market rests and expires unfilled.
	res := execOne(t, Order{Ticker: "SSO", Side: SideBuy, Qty: 100, Type: OrderLimit, Limit: f64(99)}, snap, 7)
	if res.Status != StatusNoFill || res.FilledQty != 0 || res.AvgFillPrice != nil {
		t.Fatalf("below-market BUY limit: %+v", res)
	}

	// BUY at or above market fills in full, anchored to the limit.
	res = execOne(t, Order{Ticker: "SSO", Side: SideBuy, Qty: 100, Type: OrderLimit, Limit: f64(101)}, snap, 7)
	if res.Status != StatusFilled || res.FilledQty != 100 {
		t.Fatalf("marketable BUY limit: %+v", res)
	}
	if math.Abs(*res.AvgFillPrice-101) > 101*1.25*5.0/1e4 {
		t.Fatalf("fill must anchor to the limit price, got %.6f", *res.AvgFillPrice)
	}

	// SELL above market does not fill; at or below does.
	res = execOne(t, Order{Ticker: "SSO", Side: SideSell, Qty: 100, Type: OrderLimit, Limit: f64(101)}, snap, 7)
	if res.Status != StatusNoFill {
		t.Fatalf("above-market SELL limit: %+v", res)
	}
	res = execOne(t, Order{Ticker: "SSO", Side: SideSell, Qty: 100, Type: OrderLimit, Limit: f64(99)}, snap, 7)
	if res.Status != StatusFilled {
		t.Fatalf("marketable SELL limit: %+v", res)
	}

	// Missing limit price is an invalid order, not a silent market order.
	res = execOne(t, Order{Ticker: "SSO", Side: SideBuy, Qty: 100, Type: OrderLimit}, snap, 7)
	if res.Status != StatusInvalidOrder {
		t.Fatalf("limit order without a price: %+v", res)
	}
}

func TestTWAPPartialFillUnderParticipationCap(t *testing.T) {
	// 5% of $5M ADV over 5-minute slices caps each slice at 32 shares:
	// floor(5e6/390 * 5 * 0.05 / 100). Six slices fill 192 of 10000.
	o := Order{Ticker: "SSO", Side: SideBuy, Qty: 10000, Type: OrderAlgo, Algo: "TWAP", DurationMinutes: 30, Slices: 6}
	res := execOne(t, o, snapshot(100, 5e6), 7)
	if res.Status != StatusPartial {
		t.Fatalf("got status %q", res.Status)
	}
	if res.FilledQty != 192 {
		t.Fatalf("got filled %d, want 192", res.FilledQty)
	}
	if len(res.Fills) != 6 {
		t.Fatalf("got %d slices, want 6", len(res.Fills))
	}
	for _, s := range res.Fills {
		if s.Filled != 32 || s.Status != StatusFilled {
			t.Fatalf("slice %+v", s)
		}
	}
}

func TestTWAPLiquidityFloor(t *testing.T) {
	// The cap rounds to zero shares; each slice still force-fills one share
	// so an illiquid snapshot cannot zero out the whole order.
	o := Order{Ticker: "SSO", Side: SideBuy, Qty: 10000, Type: OrderAlgo, Algo: "TWAP", DurationMinutes: 30, Slices: 6}
	res := execOne(t, o, snapshot(100, 100_000), 7)
	if res.Status != StatusPartial || res.FilledQty != 6 {
		t.Fatalf("got status %q filled %d, want partial 6", res.Status, res.FilledQty)
	}
}

func TestTWAPFullFillStopsEarly(t *testing.T) {
	o := Order{Ticker: "SSO", Side: SideBuy, Qty: 600, Type: OrderAlgo, Algo: "TWAP", DurationMinutes: 30, Slices: 6}
	res := execOne(t, o, snapshot(100, 50e6), 7)
	if res.Status != StatusFilled || res.FilledQty != 600 {
		t.Fatalf("got status %q filled %d", res.Status, res.FilledQty)
	}
	total := 0
	for _, s := range res.Fills {
		total += s.Filled
	}
	if total != 600 {
		t.Fatalf("slice fills sum to %d", total)
	}
}

func TestTWAPPerOrderParticipationOverride(t *testing.T) {
	// Doubling participation doubles the 32-share cap from the base case.
	o := Order{Ticker: "SSO", Side: SideBuy, Qty: 10000, Type: OrderAlgo, Algo: "TWAP", DurationMinutes: 30, Slices: 6, PercentOfADV: f64(0.10)}
	res := execOne(t, o, snapshot(100, 5e6), 7)
	if res.FilledQty != 384 {
		t.Fatalf("got filled %d, want 384", res.FilledQty)
	}
}

func TestExecuteDeterministicForSeed(t *testing.T) {
	plan := Plan{Orders: []Order{
		{Ticker: "SSO", Side: SideBuy, Qty: 100, Type: OrderMarket},
		{Ticker: "SSO", Side: SideSell, Qty: 5000, Type: OrderAlgo, Algo: "TWAP"},
	}}
	snap := snapshot(100, 5e6)

	a, err := NewSimulator(Config{}).Execute(context.Background(), plan, snap, 42)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	b, err := NewSimulator(Config{}).Execute(context.Background(), plan, snap, 42)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed produced different reports")
	}

	c, _ := NewSimulator(Config{}).Execute(context.Background(), plan, snap, 43)
	if reflect.DeepEqual(a, c) {
		t.Fatal("different seeds should jitter fill prices")
	}
}

func TestExecuteAggregatesMetrics(t *testing.T) {
	plan := Plan{Orders: []Order{
		{Ticker: "SSO", Side: SideBuy, Qty: 100, Type: OrderMarket},
		{Ticker: "SSO", Side: SideBuy, Qty: 100, Type: OrderLimit, Limit: f64(99)}, // no fill
	}}
	report, err := NewSimulator(Config{}).Execute(context.Background(), plan, snapshot(100, 50e6), 7)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if report.Metrics.TotalRequested != 200 || report.Metrics.TotalFilled != 100 {
		t.Fatalf("metrics %+v", report.Metrics)
	}
	want := float64(100) * *report.Fills[0].AvgFillPrice
	if math.Abs(report.Metrics.NotionalFilledUSD-want) > 1e-9 {
		t.Fatalf("notional %.6f, want %.6f", report.Metrics.NotionalFilledUSD, want)
	}
}

func TestUnsupportedMode(t *testing.T) {
	sim := NewSimulator(Config{Mode: "live"})
	_, err := sim.Execute(context.Background(), Plan{}, nil, 1)
	if !errors.Is(err, ErrUnsupportedMode) {
		t.Fatalf("got %v", err)
	}
}

func TestMissingSnapshotFallsBackToLimitThenDefault(t *testing.T) {
	res := execOne(t, Order{Ticker: "SSO", Side: SideBuy, Qty: 10, Type: OrderLimit, Limit: f64(50)}, nil, 7)
	if res.Status != StatusFilled {
		t.Fatalf("limit should be marketable against its own price: %+v", res)
	}
	res = execOne(t, Order{Ticker: "SSO", Side: SideBuy, Qty: 10, Type: OrderMarket}, nil, 7)
	if res.AvgFillPrice == nil || math.Abs(*res.AvgFillPrice-100) > 1 {
		t.Fatalf("market order without snapshot should price near 100: %+v", res)
	}
}

func TestParseSORPolicy(t *testing.T) {
	p := ParseSORPolicy("percent_of_adv=0.10")
	if p.Mode != "percent_of_adv" || p.Percent != 0.10 {
		t.Fatalf("parsed %+v", p)
	}
	for _, bad := range []string{"", "percent_of_adv=", "percent_of_adv=x", "volume_cap=0.1"} {
		if got := ParseSORPolicy(bad); got != DefaultSORPolicy() {
			t.Fatalf("malformed %q parsed as %+v", bad, got)
		}
	}
}

func TestSORPolicyJSONAcceptsStringOrObject(t *testing.T) {
	var p SORPolicy
	if err := json.Unmarshal([]byte(`"percent_of_adv=0.02"`), &p); err != nil {
		t.Fatalf("string form: %v", err)
	}
	if p.Percent != 0.02 {
		t.Fatalf("parsed %+v", p)
	}
	if err := json.Unmarshal([]byte(`{"mode":"percent_of_adv","percent":0.03}`), &p); err != nil {
		t.Fatalf("object form: %v", err)
	}
	if p.Percent != 0.03 {
		t.Fatalf("parsed %+v", p)
	}
	// An explicit zero participation is preserved, not rewritten to 5%.
	if err := json.Unmarshal([]byte(`{"mode":"percent_of_adv","percent":0}`), &p); err != nil {
		t.Fatalf("explicit zero: %v", err)
	}
	if p.Percent != 0 {
		t.Fatalf("explicit zero percent rewritten: %+v", p)
	}
	// An absent percent still falls back to the default.
	if err := json.Unmarshal([]byte(`{"mode":"percent_of_adv"}`), &p); err != nil {
		t.Fatalf("absent percent: %v", err)
	}
	if p.Percent != 0.05 {
		t.Fatalf("absent percent should default to 5%%: %+v", p)
	}
	if err := json.Unmarshal([]byte(`42`), &p); err != nil {
		t.Fatalf("malformed form must not error: %v", err)
	}
	if p != DefaultSORPolicy() {
		t.Fatalf("malformed policy should fall back to default, got %+v", p)
	}
}

func TestOrderTypeJSONRoundTrip(t *testing.T) {
	var ty OrderType
	if err := json.Unmarshal([]byte(`"limit"`), &ty); err != nil || ty != OrderLimit {
		t.Fatalf("got %v, %v", ty, err)
	}
	if err := json.Unmarshal([]byte(`"STOP"`), &ty); err != nil || ty != OrderUnknown {
		t.Fatalf("unknown type must decode to OrderUnknown, got %v, %v", ty, err)
	}
	b, err := json.Marshal(OrderAlgo)
	if err != nil || string(b) != `"ALG"` {
		t.Fatalf("got %s, %v", b, err)
	}
}
