// Package audit canonicalizes, hashes, weakly signs, persists and
// replay-validates decision records so every decision is tamper-evident and
// reproducible bit-for-bit across runs and machines.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quantfold/hedge-engine/internal/observ"
	"github.com/quantfold/hedge-engine/internal/record"
)

var ErrMissingAuditHash = errors.New("audit: record must be sealed before signing")

// Volatile fields excluded from every hash computation, so both the
// pre-execution and post-execution hashes verify against the state they
// were computed over.
var excludedFields = [...]string{"audit_hash", "post_execution_audit_hash", "signature"}

// Ledger seals, signs and persists decision records. The clock and ID
// source are injectable for tests.
type Ledger struct {
	now   func() time.Time
	newID func() string
}

func NewLedger() *Ledger {
	return &Ledger{
		now:   time.Now,
		newID: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// Canonicalize produces the deterministic byte representation used for
// hashing: compact JSON with sorted keys, volatile fields removed, UTF-8.
func Canonicalize(rec *record.DecisionRecord) ([]byte, error) {
	m, err := toMap(rec)
	if err != nil {
		return nil, err
	}
	for _, f := range excludedFields {
		delete(m, f)
	}
	return json.Marshal(m) // map keys are emitted in sorted order
}

// Hash is the SHA-256 hex digest of the canonical serialization.
func Hash(rec *record.DecisionRecord) (string, error) {
	b, err := Canonicalize(rec)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Seal assigns a decision ID and UTC timestamp when absent, then computes
// and attaches the audit hash. Sealing an already-identified record twice
// recomputes the same hash.
func (l *Ledger) Seal(rec *record.DecisionRecord) error {
	if rec.DecisionID == "" {
		rec.DecisionID = l.newID()
	}
	if rec.TimestampUTC == "" {
		rec.TimestampUTC = l.now().UTC().Format(time.RFC3339Nano)
	}
	h, err := Hash(rec)
	if err != nil {
		return err
	}
	rec.AuditHash = h
	return nil
}

// SealPostExecution stamps the post-execution hash after execution results
// have been attached. The original AuditHash is left untouched; it remains
// valid only against the pre-execution snapshot.
func (l *Ledger) SealPostExecution(rec *record.DecisionRecord) error {
	h, err := Hash(rec)
	if err != nil {
		return err
	}
	rec.PostExecutionAuditHash = h
	return nil
}

// Verify recomputes the hash and compares it to the stored pre-execution
// audit hash. Mismatches are reported, never raised.
func Verify(rec *record.DecisionRecord) bool {
	ok := verifyAgainst(rec, rec.AuditHash)
	observ.IncAuditVerification(ok)
	return ok
}

// VerifyPostExecution checks the post-execution hash over the full record.
func VerifyPostExecution(rec *record.DecisionRecord) bool {
	ok := verifyAgainst(rec, rec.PostExecutionAuditHash)
	observ.IncAuditVerification(ok)
	return ok
}

func verifyAgainst(rec *record.DecisionRecord, stored string) bool {
	if stored == "" {
		return false
	}
	h, err := Hash(rec)
	return err == nil && h == stored
}

// Sign attaches a deterministic signature block derived from the audit hash
// and the signer identity. The audit hash is not recomputed afterwards: it
// semantically covers the pre-signature state only.
func (l *Ledger) Sign(rec *record.DecisionRecord, signer string) error {
	if rec.AuditHash == "" {
		return ErrMissingAuditHash
	}
	sum := sha256.Sum256([]byte(rec.AuditHash + "|" + signer))
	rec.Signature = &record.Signature{
		SignedBy:      signer,
		SignatureHash: hex.EncodeToString(sum[:]),
		SignedAt:      l.now().UTC().Format(time.RFC3339Nano),
	}
	return nil
}

// Save persists the record as pretty-printed JSON with sorted keys, sealing
// it first if it has never been sealed. Overwrites any existing file.
func (l *Ledger) Save(rec *record.DecisionRecord, path string) error {
	if rec.AuditHash == "" {
		if err := l.Seal(rec); err != nil {
			return err
		}
	}
	m, err := toMap(rec)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func Load(path string) (*record.DecisionRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load decision record: %w", err)
	}
	var rec record.DecisionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("parse decision record: %w", err)
	}
	return &rec, nil
}

// RecordFilename derives a deterministic file name from the record's
// timestamp, falling back to the decision ID for unsealed records.
func RecordFilename(rec *record.DecisionRecord) string {
	if ts, err := time.Parse(time.RFC3339Nano, rec.TimestampUTC); err == nil {
		return "decision_" + ts.UTC().Format("20060102T150405Z") + ".json"
	}
	return "decision_" + rec.DecisionID + ".json"
}

// toMap round-trips the typed record through JSON so hashing and persistence
// operate on the same field set the wire format exposes.
func toMap(rec *record.DecisionRecord) (map[string]any, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
