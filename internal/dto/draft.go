package dto

import (
	"encoding/json"
	"time"

	"github.com/complyvault/evidence-api/internal/models"
)

// CreateDraftRequest is the declaration of intent to ingest evidence.
type CreateDraftRequest struct {
	IngestionMethod     models.IngestionMethod `json:"ingestion_method" validate:"required"`
	SourceSystem        string                 `json:"source_system"`
	DatasetType         models.DatasetType     `json:"dataset_type" validate:"required"`
	DeclaredScope       models.DeclaredScope   `json:"declared_scope" validate:"required"`
	ScopeTargetID       *string                `json:"scope_target_id"`
	Rationale           string                 `json:"rationale" validate:"required"`
	PurposeTags         []string               `json:"purpose_tags"`
	RetentionPolicy     models.RetentionPolicy `json:"retention_policy"`
	ContainsPersonal    bool                   `json:"contains_personal_data"`
	LegalBasis          *string                `json:"legal_basis"`
	QuarantineReason    *string                `json:"quarantine_reason"`
	ResolutionDueDate   *time.Time             `json:"resolution_due_date"`
	Payload             json.RawMessage        `json:"payload"`
	ExternalReferenceID *string                `json:"external_reference_id"`
	SnapshotTimestamp   *time.Time             `json:"snapshot_timestamp"`
}

// UpdateDraftRequest patches mutable draft fields. Binding fields are not
// present on purpose; sending one anyway is caught by RejectedBindingFields.
type UpdateDraftRequest struct {
	SourceSystem        *string         `json:"source_system"`
	Rationale           *string         `json:"rationale"`
	PurposeTags         []string        `json:"purpose_tags"`
	RetentionPolicy     *string         `json:"retention_policy"`
	ContainsPersonal    *bool           `json:"contains_personal_data"`
	LegalBasis          *string         `json:"legal_basis"`
	QuarantineReason    *string         `json:"quarantine_reason"`
	ResolutionDueDate   *time.Time      `json:"resolution_due_date"`
	Payload             json.RawMessage `json:"payload"`
	ExternalReferenceID *string         `json:"external_reference_id"`
	SnapshotTimestamp   *time.Time      `json:"snapshot_timestamp"`
}

// BindingFieldNames are the draft fields frozen at creation.
var BindingFieldNames = []string{"ingestion_method", "dataset_type", "declared_scope", "scope_target_id"}

// RejectedBindingFields returns which binding fields a raw patch body tries
// to set. The typed struct above cannot carry them, so the check runs on the
// raw JSON before binding.
func RejectedBindingFields(raw []byte) []string {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	var rejected []string
	for _, name := range BindingFieldNames {
		if _, ok := generic[name]; ok {
			rejected = append(rejected, name)
		}
	}
	return rejected
}

// CreateDraftResponse is the minimal creation acknowledgement.
type CreateDraftResponse struct {
	DraftID string             `json:"draft_id"`
	Status  models.DraftStatus `json:"status"`
}

// SealReadiness reports whether a draft can be sealed and what is missing.
type SealReadiness struct {
	ReadyToSeal   bool     `json:"ready_to_seal"`
	MissingFields []string `json:"missing_fields"`
}

// ForSealResponse is the pre-seal snapshot of a draft.
type ForSealResponse struct {
	DraftID    string              `json:"draft_id"`
	Metadata   *models.Draft       `json:"metadata"`
	Files      []models.Attachment `json:"files"`
	Validation SealReadiness       `json:"validation"`
}

// SealResponse is the sealed-evidence acknowledgement.
type SealResponse struct {
	EvidenceID   string             `json:"evidence_id"`
	LedgerState  models.LedgerState `json:"ledger_state"`
	PayloadHash  string             `json:"payload_hash"`
	MetadataHash string             `json:"metadata_hash"`
	SealedAt     time.Time          `json:"sealed_at"`
	RetentionEnd time.Time          `json:"retention_end"`
	TrustLevel   models.TrustLevel  `json:"trust_level"`
}

// TransitionRequest asks for an evidence state change.
type TransitionRequest struct {
	ToState models.LedgerState `json:"to_state" validate:"required"`
	Reason  string             `json:"reason" validate:"required"`
}

// TransitionResponse returns the new state and full history.
type TransitionResponse struct {
	EvidenceID   string              `json:"evidence_id"`
	LedgerState  models.LedgerState  `json:"ledger_state"`
	StateHistory models.StateHistory `json:"state_history"`
}

// DownloadURLResponse carries a signed attachment download link.
type DownloadURLResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
