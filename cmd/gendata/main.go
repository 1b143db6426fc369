// Command gendata writes a synthetic price history for sandbox runs: a
// seeded geometric random walk per ticker, one CSV row per ticker per day.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func main() {
	log.SetFlags(0)
	out := flag.String("out", "data/sandbox_etf_prices.csv", "output CSV path")
	days := flag.Int("days", 500, "number of daily bars per ticker")
	tickers := flag.String("tickers", "SPY,XLK,XLV,XLY,TLT,IEF,GLD,SHY,SMH,SOXX,SSO", "comma-separated tickers")
	start := flag.String("start", "2022-01-01", "first bar date (YYYY-MM-DD)")
	flag.Parse()

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatalf("start date: %v", err)
	}
	if err := write(*out, strings.Split(*tickers, ","), startDate, *days); err != nil {
		log.Fatalf("gendata: %v", err)
	}
	fmt.Printf("wrote %s\n", *out)
}

func write(path string, tickers []string, start time.Time, days int) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "ticker", "adj_close", "volume"}); err != nil {
		return err
	}
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		// Per-ticker seed so adding a ticker never reshuffles the others.
		rng := rand.New(rand.NewSource(tickerSeed(t)))
		price := 100.0
		for i := 0; i < days; i++ {
			price *= 1 + rng.NormFloat64()*0.01
			volume := 100_000 + rng.Intn(900_000)
			row := []string{
				start.AddDate(0, 0, i).Format("2006-01-02"),
				t,
				fmt.Sprintf("%.6f", price),
				fmt.Sprintf("%d", volume),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func tickerSeed(ticker string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(ticker))
	return int64(h.Sum64() & 0x7FFFFFFF)
}
