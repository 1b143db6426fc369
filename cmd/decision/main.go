// Command decision runs the pre-trade half of the pipeline: it loads a
// signal and historical returns, simulates LETF decay, evaluates the EV
// viability gate and writes a sealed decision record.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/quantfold/hedge-engine/internal/audit"
	"github.com/quantfold/hedge-engine/internal/config"
	"github.com/quantfold/hedge-engine/internal/decay"
	"github.com/quantfold/hedge-engine/internal/execution"
	"github.com/quantfold/hedge-engine/internal/gate"
	"github.com/quantfold/hedge-engine/internal/marketdata"
	"github.com/quantfold/hedge-engine/internal/observ"
	"github.com/quantfold/hedge-engine/internal/pretrade"
	"github.com/quantfold/hedge-engine/internal/record"
	"github.com/quantfold/hedge-engine/internal/risk"
)

func main() {
	log.SetFlags(0)
	cfgPath := flag.String("config", "config/sandbox.yaml", "path to config file")
	signalPath := flag.String("signal", "", "path to a signal JSON file (default: built-in demo signal)")
	outPath := flag.String("out", "", "output path for the decision record (default: derived from timestamp)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("config: %v", err)
		}
		cfg = config.Default()
		observ.Warn("config_not_found_using_defaults", map[string]any{"path": *cfgPath})
	}
	if err := observ.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("log level: %v", err)
	}

	history, err := marketdata.LoadCSV(cfg.Data.PricesCSV)
	if err != nil {
		log.Fatalf("price history: %v", err)
	}
	returns, err := history.Returns(cfg.Data.Ticker)
	if err != nil {
		log.Fatalf("returns: %v", err)
	}

	sig, err := loadSignal(*signalPath)
	if err != nil {
		log.Fatalf("signal: %v", err)
	}

	leverage := sig.SuggestedInstrument.Leverage
	if leverage == 0 {
		leverage = cfg.Decay.Leverage
	}
	window := sig.HorizonDays
	if window == 0 {
		window = cfg.Decay.WindowDays
	}

	stats, err := decay.Simulate(returns, leverage, window, cfg.Decay.Trials, cfg.Decay.Seed)
	if err != nil {
		log.Fatalf("decay simulation: %v", err)
	}

	vol := risk.AnnualizedVol(returns)
	analytic, _ := decay.AnalyticDecay(leverage, vol, window)
	tMax := gate.ComputeTMax(leverage, vol)
	pVaR, _ := risk.ParametricVaR(returns, 0.01)
	hVaR, _ := risk.HistoricalVaR(returns, 0.01)
	observ.Log("risk_summary", map[string]any{
		"annual_vol":     vol,
		"analytic_decay": analytic,
		"t_max_days":     tMax,
		"parametric_var": pVaR,
		"historical_var": hVaR,
	})
	if window > tMax {
		observ.Warn("horizon_exceeds_t_max", map[string]any{"horizon_days": window, "t_max_days": tMax})
	}

	ev := gate.Evaluate(sig, &stats, gate.Costs{
		TradingCosts: cfg.Gate.TradingCosts,
		Slippage:     cfg.Gate.Slippage,
		SafetyMargin: cfg.Gate.SafetyMargin,
	})

	ticker := snapshotTicker(history, sig, cfg.Data.Ticker)
	adv := history.DollarADV(ticker, cfg.Data.ADVLookbackDays)
	check := pretrade.CheckInstrument(sig.SuggestedInstrument, 0, 0,
		pretrade.Metrics{ADV: adv},
		pretrade.Limits{Universe: history.Tickers()})
	if !check.Allowed {
		observ.Warn("pretrade_gate_failed", map[string]any{"reasons": check.Reasons})
	}

	rec := &record.DecisionRecord{
		Signal:      &sig,
		QuantChecks: &ev,
		Inputs: &record.Inputs{
			MarketSnapshot: map[string]execution.MarketInfo{
				ticker: {Price: history.LastClose(ticker), ADV: adv},
			},
			DecayStats:   &stats,
			EstVolAnnual: vol,
			Seed:         cfg.Decay.Seed,
		},
	}

	ledger := audit.NewLedger()
	if err := ledger.Seal(rec); err != nil {
		log.Fatalf("seal: %v", err)
	}
	if cfg.Audit.Signer != "" {
		if err := ledger.Sign(rec, cfg.Audit.Signer); err != nil {
			log.Fatalf("sign: %v", err)
		}
	}

	path := *outPath
	if path == "" {
		path = filepath.Join(cfg.Audit.RecordDir, audit.RecordFilename(rec))
	}
	if err := ledger.Save(rec, path); err != nil {
		log.Fatalf("save: %v", err)
	}
	observ.Log("decision_recorded", map[string]any{
		"decision_id": rec.DecisionID,
		"path":        path,
		"viable":      ev.ViabilityPass,
		"ev_net":      ev.EVNet,
	})
}

// snapshotTicker prefers the suggested instrument when the price source
// covers it, otherwise the configured underlying.
func snapshotTicker(h *marketdata.History, sig gate.Signal, fallback string) string {
	t := sig.SuggestedInstrument.Ticker
	if t != "" && h.LastClose(t) > 0 {
		return t
	}
	return fallback
}

// loadSignal reads a signal JSON file; without one it returns the demo
// signal used for sandbox runs. The signal generator itself is an external
// collaborator.
func loadSignal(path string) (gate.Signal, error) {
	if path == "" {
		conf := 0.82
		return gate.Signal{
			PSuccess:      0.7,
			PConfidence:   &conf,
			HorizonDays:   5,
			ExpectedDelta: gate.ExpectedDelta{Fav: 0.08, Neutral: 0, Unfav: -0.05},
			SuggestedInstrument: gate.Instrument{
				Type: "LETF", Ticker: "SSO", Leverage: 3,
			},
			Rationale: "Sandbox demo: tactical LETF hedge for a short horizon",
			Flags:     map[string]bool{"requires_human_review": false},
		}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return gate.Signal{}, err
	}
	var sig gate.Signal
	if err := json.Unmarshal(b, &sig); err != nil {
		return gate.Signal{}, err
	}
	return sig, nil
}
