// Package record defines the decision record, the root aggregate that binds
// a signal, its quantitative checks and (optionally) its execution outcome
// into one hash-sealable artifact. Ownership is strictly sequential:
// gate pipeline, then execution pipeline, then the audit ledger.
package record

import (
	"github.com/quantfold/hedge-engine/internal/decay"
	"github.com/quantfold/hedge-engine/internal/execution"
	"github.com/quantfold/hedge-engine/internal/gate"
)

// Signature is a lightweight, auditable attestation. It is not a
// cryptographic signature; no private keys are involved.
type Signature struct {
	SignedBy      string `json:"signed_by"`
	SignatureHash string `json:"signature_hash"`
	SignedAt      string `json:"signed_at"`
}

// Inputs captures everything needed to deterministically replay the
// quantitative checks.
type Inputs struct {
	MarketSnapshot map[string]execution.MarketInfo `json:"market_snapshot,omitempty"`
	DecayStats     *decay.Stats                    `json:"decay_stats,omitempty"`
	EstVolAnnual   float64                         `json:"est_vol_annual,omitempty"`
	Seed           int64                           `json:"seed,omitempty"`
}

// DecisionRecord is hashed twice with different scopes: AuditHash seals the
// pre-execution snapshot and PostExecutionAuditHash seals the record after
// execution results are attached. Both hashes exclude the volatile fields
// (audit_hash, post_execution_audit_hash, signature) so each verifies
// against the state it was computed over.
type DecisionRecord struct {
	DecisionID             string                `json:"decision_id,omitempty"`
	TimestampUTC           string                `json:"timestamp_utc,omitempty"`
	Signal                 *gate.Signal          `json:"signal,omitempty"`
	QuantChecks            *gate.EVResult        `json:"quant_checks,omitempty"`
	Inputs                 *Inputs               `json:"inputs,omitempty"`
	ExecutionPlan          *execution.Plan       `json:"execution_plan,omitempty"`
	ExecutionResult        *execution.FillReport `json:"execution_result,omitempty"`
	AuditHash              string                `json:"audit_hash,omitempty"`
	PostExecutionAuditHash string                `json:"post_execution_audit_hash,omitempty"`
	Signature              *Signature            `json:"signature,omitempty"`
}
