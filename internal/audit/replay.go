package audit

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/quantfold/hedge-engine/internal/record"
)

// Validator recomputes deterministic values (EV checks, decay stats with
// fixed seeds) from a loaded record. It must not call non-deterministic
// services.
type Validator func(*record.DecisionRecord) (map[string]any, error)

type Mismatch struct {
	Expected any `json:"expected"`
	Actual   any `json:"actual"`
}

// ReplayResult always comes back, even when validation fails.
// ValidationOK is nil when no validator was supplied.
type ReplayResult struct {
	Record       *record.DecisionRecord
	AuditOK      bool
	ValidationOK *bool
	Mismatches   map[string]Mismatch
}

// Replay loads a persisted record, verifies its audit hash and, when a
// validator is supplied, compares each recomputed value against the stored
// quant_checks entry under an absolute-or-relative tolerance. Validator
// failures are captured as a single _validator_error mismatch rather than
// propagated.
//
// Executed records are verified against the post-execution hash, since the
// pre-execution hash only covers the record before results were attached.
func (l *Ledger) Replay(path string, validate Validator) (ReplayResult, error) {
	rec, err := Load(path)
	if err != nil {
		return ReplayResult{}, err
	}

	auditOK := Verify(rec)
	if rec.PostExecutionAuditHash != "" {
		auditOK = VerifyPostExecution(rec)
	}
	res := ReplayResult{
		Record:     rec,
		AuditOK:    auditOK,
		Mismatches: map[string]Mismatch{},
	}
	if validate == nil {
		return res, nil
	}

	recomputed, verr := runValidator(validate, rec)
	if verr != nil {
		failed := false
		res.ValidationOK = &failed
		res.Mismatches["_validator_error"] = Mismatch{Actual: verr.Error()}
		return res, nil
	}

	stored := map[string]any{}
	if rec.QuantChecks != nil {
		b, _ := json.Marshal(rec.QuantChecks)
		_ = json.Unmarshal(b, &stored)
	}
	for k, v := range recomputed {
		sv, ok := stored[k]
		if !ok {
			res.Mismatches[k] = Mismatch{Expected: nil, Actual: v}
			continue
		}
		if !valuesMatch(sv, v) {
			res.Mismatches[k] = Mismatch{Expected: sv, Actual: v}
		}
	}
	ok := len(res.Mismatches) == 0
	res.ValidationOK = &ok
	return res, nil
}

func runValidator(validate Validator, rec *record.DecisionRecord) (m map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()
	return validate(rec)
}

// valuesMatch compares numerically when both sides are numbers, using
// tolerance max(1e-9, 1e-8*max(1,|stored|)); otherwise it falls back to
// deep equality.
func valuesMatch(stored, actual any) bool {
	fs, okS := toFloat(stored)
	fa, okA := toFloat(actual)
	if okS && okA {
		return math.Abs(fa-fs) <= math.Max(1e-9, 1e-8*math.Max(1, math.Abs(fs)))
	}
	return reflect.DeepEqual(stored, actual)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
