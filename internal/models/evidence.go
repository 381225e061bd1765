package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// LedgerState is a state in the evidence lifecycle. The sealing path only
// ever produces SEALED or QUARANTINED; RAW, CLASSIFIED and STRUCTURED belong
// to the separate classification sub-flow and never appear on the seal path.
type LedgerState string

const (
	StateRaw         LedgerState = "RAW"
	StateDraft       LedgerState = "DRAFT"
	StateClassified  LedgerState = "CLASSIFIED"
	StateStructured  LedgerState = "STRUCTURED"
	StateSealed      LedgerState = "SEALED"
	StateQuarantined LedgerState = "QUARANTINED"
	StateRejected    LedgerState = "REJECTED"
)

// allowedTransitions is the single source of truth for legal state changes.
// The sealing flow and the classification sub-flow occupy disjoint regions;
// REJECTED is terminal for both.
var allowedTransitions = map[LedgerState][]LedgerState{
	StateDraft:       {StateSealed, StateQuarantined},
	StateSealed:      {StateRejected},
	StateQuarantined: {StateRejected},
	StateRaw:         {StateClassified},
	StateClassified:  {StateStructured},
	StateStructured:  {},
	StateRejected:    {},
}

// TransitionAllowed reports whether from → to is a legal transition.
func TransitionAllowed(from, to LedgerState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the legal successor states of from.
func AllowedTransitions(from LedgerState) []LedgerState {
	next := allowedTransitions[from]
	out := make([]LedgerState, len(next))
	copy(out, next)
	return out
}

// TrustLevel is a coarse reliability tier derived from the ingestion method.
type TrustLevel string

const (
	TrustLow    TrustLevel = "LOW"
	TrustMedium TrustLevel = "MEDIUM"
	TrustHigh   TrustLevel = "HIGH"
)

// TrustLevelFor maps ingestion methods to trust tiers: manual entry below
// file and ERP exports, system-to-system channels on top.
func TrustLevelFor(method IngestionMethod) TrustLevel {
	switch method {
	case MethodManualEntry:
		return TrustLow
	case MethodFileUpload, MethodERPExport:
		return TrustMedium
	case MethodERPAPI, MethodAPIPush, MethodSupplierPortal:
		return TrustHigh
	default:
		return TrustLow
	}
}

// ReviewStatus tracks downstream human review of sealed evidence.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING_REVIEW"
	ReviewAccepted ReviewStatus = "ACCEPTED"
	ReviewFlagged  ReviewStatus = "FLAGGED"
)

// StateChange is one entry of the append-only state history.
type StateChange struct {
	From   LedgerState `json:"from"`
	To     LedgerState `json:"to"`
	Reason string      `json:"reason"`
	Actor  string      `json:"actor"`
	At     time.Time   `json:"at"`
}

// StateHistory stores the transition log as a JSONB column. It is only ever
// appended to.
type StateHistory []StateChange

// Value implements driver.Valuer.
func (h StateHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

// Scan implements sql.Scanner.
func (h *StateHistory) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*h = nil
		return nil
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	default:
		return fmt.Errorf("unsupported type for StateHistory: %T", src)
	}
}

// SealedEvidence is created exactly once per successful seal and is immutable
// afterwards; only the ledger state may advance, via the transition table,
// and every advance appends to StateHistory.
type SealedEvidence struct {
	ID                  string          `db:"id" json:"evidence_id"`
	TenantID            string          `db:"tenant_id" json:"tenant_id"`
	DraftID             string          `db:"draft_id" json:"draft_id"`
	DatasetType         DatasetType     `db:"dataset_type" json:"dataset_type"`
	ExternalReferenceID *string         `db:"external_reference_id" json:"external_reference_id,omitempty"`
	LedgerState         LedgerState     `db:"ledger_state" json:"ledger_state"`
	PayloadHash         string          `db:"payload_hash" json:"payload_hash"`
	MetadataHash        string          `db:"metadata_hash" json:"metadata_hash"`
	TrustLevel          TrustLevel      `db:"trust_level" json:"trust_level"`
	ReviewStatus        ReviewStatus    `db:"review_status" json:"review_status"`
	RetentionPolicy     RetentionPolicy `db:"retention_policy" json:"retention_policy"`
	SealedAt            time.Time       `db:"sealed_at" json:"sealed_at"`
	RetentionEnd        time.Time       `db:"retention_end" json:"retention_end"`
	StateHistory        StateHistory    `db:"state_history" json:"state_history"`
	SealedBy            string          `db:"sealed_by" json:"sealed_by"`
}
