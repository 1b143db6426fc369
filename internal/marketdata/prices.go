// Package marketdata loads the columnar historical price source: one row
// per ticker per trading day with date, adjusted close and share volume,
// ascending by date. The core only needs per-ticker return series and a
// dollar-ADV estimate; storage beyond a CSV file is a collaborator concern.
package marketdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/quantfold/hedge-engine/internal/decay"
)

type Bar struct {
	Date     time.Time
	Ticker   string
	AdjClose float64
	Volume   float64
}

// History holds per-ticker bars in ascending date order.
type History struct {
	bars map[string][]Bar
}

// LoadCSV reads a file with header date,ticker,adj_close,volume. Rows may
// arrive unsorted; they are ordered per ticker after parsing.
func LoadCSV(path string) (*History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prices: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read prices: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("prices file %s has no data rows", path)
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, name := range []string{"date", "ticker", "adj_close", "volume"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("prices file missing column %q", name)
		}
	}

	h := &History{bars: map[string][]Bar{}}
	for i, row := range rows[1:] {
		date, err := time.Parse("2006-01-02", row[col["date"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad date: %w", i+2, err)
		}
		px, err := strconv.ParseFloat(row[col["adj_close"]], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad adj_close: %w", i+2, err)
		}
		vol, err := strconv.ParseFloat(row[col["volume"]], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad volume: %w", i+2, err)
		}
		t := row[col["ticker"]]
		h.bars[t] = append(h.bars[t], Bar{Date: date, Ticker: t, AdjClose: px, Volume: vol})
	}
	for t := range h.bars {
		sort.Slice(h.bars[t], func(a, b int) bool { return h.bars[t][a].Date.Before(h.bars[t][b].Date) })
	}
	return h, nil
}

func (h *History) Tickers() []string {
	out := make([]string, 0, len(h.bars))
	for t := range h.bars {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (h *History) Prices(ticker string) []float64 {
	bars := h.bars[ticker]
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.AdjClose
	}
	return out
}

// Returns extracts the cleaned daily return series for a ticker.
func (h *History) Returns(ticker string) ([]float64, error) {
	prices := h.Prices(ticker)
	if len(prices) < 2 {
		return nil, fmt.Errorf("no usable price history for %s", ticker)
	}
	return decay.ReturnsFromPrices(prices), nil
}

// LastClose returns the most recent adjusted close, or zero when unknown.
func (h *History) LastClose(ticker string) float64 {
	bars := h.bars[ticker]
	if len(bars) == 0 {
		return 0
	}
	return bars[len(bars)-1].AdjClose
}

// DollarADV estimates average daily dollar volume over the trailing lookback
// bars (all bars when lookback exceeds the history).
func (h *History) DollarADV(ticker string, lookback int) float64 {
	bars := h.bars[ticker]
	if len(bars) == 0 || lookback <= 0 {
		return 0
	}
	if lookback > len(bars) {
		lookback = len(bars)
	}
	sum := 0.0
	for _, b := range bars[len(bars)-lookback:] {
		sum += b.AdjClose * b.Volume
	}
	return sum / float64(lookback)
}
