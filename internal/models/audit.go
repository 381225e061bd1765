package models

import "time"

// Audit event types emitted by the kernel. Every mutation attempt produces
// one, whether it succeeded or not.
const (
	AuditDraftCreated           = "DRAFT_CREATED"
	AuditDraftRejected          = "DRAFT_REJECTED"
	AuditDraftUpdated           = "DRAFT_UPDATED"
	AuditDraftUpdateRejected    = "DRAFT_UPDATE_REJECTED"
	AuditAttachmentAdded        = "ATTACHMENT_ADDED"
	AuditAttachmentRejected     = "ATTACHMENT_REJECTED"
	AuditEvidenceSealed         = "EVIDENCE_SEALED"
	AuditSealRejected           = "SEAL_REJECTED"
	AuditIdempotentReplay       = "IDEMPOTENT_REPLAY"
	AuditIdempotencyConflict    = "IDEMPOTENCY_CONFLICT"
	AuditStateTransitioned      = "STATE_TRANSITIONED"
	AuditStateTransitionBlocked = "STATE_TRANSITION_BLOCKED"
)

// AuditEvent is an append-only trail record. Rows are never updated or
// deleted; a rejected mutation is recorded the same as a successful one.
type AuditEvent struct {
	ID            string    `db:"id" json:"id"`
	TenantID      string    `db:"tenant_id" json:"tenant_id"`
	CorrelationID string    `db:"correlation_id" json:"correlation_id"`
	EventType     string    `db:"event_type" json:"event_type"`
	SubjectID     string    `db:"subject_id" json:"subject_id"`
	Actor         string    `db:"actor" json:"actor"`
	Detail        []byte    `db:"detail" json:"detail,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
