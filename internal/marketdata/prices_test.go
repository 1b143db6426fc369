package marketdata

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func load(t *testing.T) *History {
	t.Helper()
	h, err := LoadCSV(filepath.Join("testdata", "prices.csv"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return h
}

func TestLoadCSVSortsRows(t *testing.T) {
	h := load(t)
	prices := h.Prices("SPY")
	want := []float64{100.0, 101.0, 102.0, 101.5}
	if len(prices) != len(want) {
		t.Fatalf("got %d bars, want %d", len(prices), len(want))
	}
	for i := range want {
		if prices[i] != want[i] {
			t.Fatalf("prices[%d] = %g, want %g (rows must sort by date)", i, prices[i], want[i])
		}
	}
}

func TestTickers(t *testing.T) {
	h := load(t)
	got := h.Tickers()
	if len(got) != 2 || got[0] != "SPY" || got[1] != "SSO" {
		t.Fatalf("tickers %v", got)
	}
}

func TestReturns(t *testing.T) {
	h := load(t)
	returns, err := h.Returns("SPY")
	if err != nil {
		t.Fatalf("returns: %v", err)
	}
	want := []float64{0.01, 102.0/101.0 - 1, 101.5/102.0 - 1}
	if len(returns) != len(want) {
		t.Fatalf("got %d returns, want %d", len(returns), len(want))
	}
	for i := range want {
		if math.Abs(returns[i]-want[i]) > 1e-12 {
			t.Fatalf("returns[%d] = %g, want %g", i, returns[i], want[i])
		}
	}

	if _, err := h.Returns("GME"); err == nil {
		t.Fatal("unknown ticker must error")
	}
}

func TestLastClose(t *testing.T) {
	h := load(t)
	if got := h.LastClose("SSO"); got != 51.8 {
		t.Fatalf("last close %g", got)
	}
	if got := h.LastClose("GME"); got != 0 {
		t.Fatalf("unknown ticker last close %g", got)
	}
}

func TestDollarADV(t *testing.T) {
	h := load(t)
	// Trailing 2 bars of SPY: (102*1.1e6 + 101.5*1.2e6) / 2.
	want := (102.0*1_100_000 + 101.5*1_200_000) / 2
	if got := h.DollarADV("SPY", 2); math.Abs(got-want) > 1e-6 {
		t.Fatalf("ADV %g, want %g", got, want)
	}
	// Lookback beyond history uses everything.
	all := (100.0*900_000 + 101.0*1_000_000 + 102.0*1_100_000 + 101.5*1_200_000) / 4
	if got := h.DollarADV("SPY", 100); math.Abs(got-all) > 1e-6 {
		t.Fatalf("ADV %g, want %g", got, all)
	}
	if got := h.DollarADV("SPY", 0); got != 0 {
		t.Fatalf("zero lookback ADV %g", got)
	}
}

func TestLoadCSVErrors(t *testing.T) {
	if _, err := LoadCSV(filepath.Join("testdata", "missing.csv")); err == nil {
		t.Fatal("missing file must error")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("date,ticker,adj_close\n2026-01-02,SPY,100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCSV(bad); err == nil {
		t.Fatal("missing volume column must error")
	}

	if err := os.WriteFile(bad, []byte("date,ticker,adj_close,volume\nnot-a-date,SPY,100,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCSV(bad); err == nil {
		t.Fatal("bad date must error")
	}
}
