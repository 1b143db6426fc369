// Command sandbox runs the execution half of the pipeline: it loads a
// sealed decision record, verifies the audit hash, builds an execution plan
// and simulates the fills, then re-seals the record with a post-execution
// hash.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/quantfold/hedge-engine/internal/audit"
	"github.com/quantfold/hedge-engine/internal/config"
	"github.com/quantfold/hedge-engine/internal/execution"
	"github.com/quantfold/hedge-engine/internal/marketdata"
	"github.com/quantfold/hedge-engine/internal/observ"
	"github.com/quantfold/hedge-engine/internal/planner"
)

func main() {
	log.SetFlags(0)
	cfgPath := flag.String("config", "config/sandbox.yaml", "path to config file")
	recordPath := flag.String("record", "", "path to the decision record to execute")
	flag.Parse()

	if *recordPath == "" {
		log.Fatal("usage: sandbox -record <decision.json> [-config <path>]")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("config: %v", err)
		}
		cfg = config.Default()
	}
	if err := observ.SetLevel(cfg.LogLevel); err != nil {
		log.Fatalf("log level: %v", err)
	}
	if cfg.MetricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, observ.MetricsHandler()); err != nil {
				observ.Error("metrics_listener", err, nil)
			}
		}()
	}

	rec, err := audit.Load(*recordPath)
	if err != nil {
		log.Fatalf("record: %v", err)
	}
	if !audit.Verify(rec) {
		observ.Warn("audit_hash_mismatch", map[string]any{"decision_id": rec.DecisionID})
	}
	if rec.QuantChecks == nil || !rec.QuantChecks.ViabilityPass {
		log.Fatalf("decision %s did not pass the viability gate; refusing to execute", rec.DecisionID)
	}

	history, err := marketdata.LoadCSV(cfg.Data.PricesCSV)
	if err != nil {
		log.Fatalf("price history: %v", err)
	}
	returns, err := history.Returns(cfg.Data.Ticker)
	if err != nil {
		log.Fatalf("returns: %v", err)
	}

	ticker := cfg.Data.Ticker
	if rec.Signal != nil && rec.Signal.SuggestedInstrument.Ticker != "" && history.LastClose(rec.Signal.SuggestedInstrument.Ticker) > 0 {
		ticker = rec.Signal.SuggestedInstrument.Ticker
	}
	price := history.LastClose(ticker)
	snapshot := map[string]execution.MarketInfo{
		ticker: {Price: price, ADV: history.DollarADV(ticker, cfg.Data.ADVLookbackDays)},
	}

	plan := planner.BuildPlan(rec, cfg.PortfolioNAV, map[string]float64{ticker: price}, planner.Config{
		AllocFraction:       cfg.Planner.AllocFraction,
		TwapQtyThreshold:    cfg.Planner.TwapQtyThreshold,
		TwapDurationMinutes: cfg.Planner.TwapDurationMinutes,
		TwapSlices:          cfg.Planner.TwapSlices,
		SORPolicy:           cfg.Execution.SORPolicy,
		MaxSlippageBps:      cfg.Execution.MaxSlippageBps,
		TargetAnnualVol:     cfg.Planner.TargetAnnualVol,
		RecentReturns:       returns,
	})

	sim := execution.NewSimulator(execution.Config{
		Mode:            cfg.Execution.Mode,
		SlicesPerSecond: cfg.Execution.SlicesPerSecond,
	})
	report, err := sim.Execute(context.Background(), plan, snapshot, cfg.Execution.Seed)
	if err != nil {
		log.Fatalf("execute: %v", err)
	}

	rec.ExecutionPlan = &plan
	rec.ExecutionResult = &report

	ledger := audit.NewLedger()
	if err := ledger.SealPostExecution(rec); err != nil {
		log.Fatalf("post-execution seal: %v", err)
	}
	if err := ledger.Save(rec, *recordPath); err != nil {
		log.Fatalf("save: %v", err)
	}
	observ.Log("execution_complete", map[string]any{
		"decision_id":     rec.DecisionID,
		"total_requested": report.Metrics.TotalRequested,
		"total_filled":    report.Metrics.TotalFilled,
		"notional_usd":    report.Metrics.NotionalFilledUSD,
	})
}
