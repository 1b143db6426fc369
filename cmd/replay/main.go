// Command replay re-validates a persisted decision record: it verifies the
// audit hash and deterministically recomputes the quantitative checks,
// reporting any drift from the stored values.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/quantfold/hedge-engine/internal/audit"
	"github.com/quantfold/hedge-engine/internal/config"
	"github.com/quantfold/hedge-engine/internal/decay"
	"github.com/quantfold/hedge-engine/internal/gate"
	"github.com/quantfold/hedge-engine/internal/marketdata"
	"github.com/quantfold/hedge-engine/internal/observ"
	"github.com/quantfold/hedge-engine/internal/record"
)

func main() {
	log.SetFlags(0)
	cfgPath := flag.String("config", "config/sandbox.yaml", "path to config file")
	recordPath := flag.String("record", "", "path to the decision record to replay")
	flag.Parse()

	if *recordPath == "" {
		log.Fatal("usage: replay -record <decision.json> [-config <path>]")
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

	ledger := audit.NewLedger()
	res, err := ledger.Replay(*recordPath, evValidator(cfg))
	if err != nil {
		log.Fatalf("replay: %v", err)
	}

	replayDecay(cfg, res.Record)

	out := map[string]any{
		"decision_id":   res.Record.DecisionID,
		"audit_ok":      res.AuditOK,
		"validation_ok": res.ValidationOK,
		"mismatches":    res.Mismatches,
	}
	if res.Record.PostExecutionAuditHash != "" {
		out["post_execution_audit_ok"] = audit.VerifyPostExecution(res.Record)
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))

	if !res.AuditOK || (res.ValidationOK != nil && !*res.ValidationOK) {
		os.Exit(1)
	}
}

// evValidator recomputes the EV checks from the stored signal, decay stats
// and the configured cost assumptions.
func evValidator(cfg config.Root) audit.Validator {
	return func(rec *record.DecisionRecord) (map[string]any, error) {
		if rec.Signal == nil {
			return nil, errors.New("record has no signal")
		}
		var stats *decay.Stats
		if rec.Inputs != nil {
			stats = rec.Inputs.DecayStats
		}
		ev := gate.Evaluate(*rec.Signal, stats, gate.Costs{
			TradingCosts: cfg.Gate.TradingCosts,
			Slippage:     cfg.Gate.Slippage,
			SafetyMargin: cfg.Gate.SafetyMargin,
		})
		b, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// replayDecay re-runs the bootstrap simulation with the recorded seed and
// reports whether it reproduces the stored distribution.
func replayDecay(cfg config.Root, rec *record.DecisionRecord) {
	if rec.Inputs == nil || rec.Inputs.DecayStats == nil {
		return
	}
	stored := rec.Inputs.DecayStats

	history, err := marketdata.LoadCSV(cfg.Data.PricesCSV)
	if err != nil {
		observ.Warn("decay_replay_skipped", map[string]any{"reason": err.Error()})
		return
	}
	returns, err := history.Returns(cfg.Data.Ticker)
	if err != nil {
		observ.Warn("decay_replay_skipped", map[string]any{"reason": err.Error()})
		return
	}

	recomputed, err := decay.Simulate(returns, stored.Leverage, stored.Window, stored.Trials, rec.Inputs.Seed)
	if err != nil {
		observ.Warn("decay_replay_skipped", map[string]any{"reason": err.Error()})
		return
	}
	observ.Log("decay_replay", map[string]any{
		"mean_stored":     stored.Mean,
		"mean_recomputed": recomputed.Mean,
		"match":           math.Abs(recomputed.Mean-stored.Mean) <= 1e-12,
	})
}
