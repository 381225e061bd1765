package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/complyvault/evidence-api/internal/models"
)

// DraftRepository persists ingestion drafts. Every read and write is scoped
// by tenant_id; there is no unscoped variant.
type DraftRepository struct {
	db *sqlx.DB
}

// NewDraftRepository constructs the repository.
func NewDraftRepository(db *sqlx.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

const draftColumns = `id, tenant_id, ingestion_method, source_system, dataset_type, declared_scope,
       scope_target_id, rationale, purpose_tags, retention_policy, contains_personal_data, legal_basis,
       quarantine_reason, resolution_due_date, payload, external_reference_id, snapshot_timestamp,
       status, created_at, updated_at`

// Create inserts a new draft row.
func (r *DraftRepository) Create(ctx context.Context, draft *models.Draft) error {
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	if draft.Status == "" {
		draft.Status = models.DraftStatusDraft
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now().UTC()
	}
	draft.UpdatedAt = draft.CreatedAt
	const query = `INSERT INTO drafts
	(id, tenant_id, ingestion_method, source_system, dataset_type, declared_scope, scope_target_id,
	 rationale, purpose_tags, retention_policy, contains_personal_data, legal_basis, quarantine_reason,
	 resolution_due_date, payload, external_reference_id, snapshot_timestamp, status, created_at, updated_at)
	VALUES (:id, :tenant_id, :ingestion_method, :source_system, :dataset_type, :declared_scope, :scope_target_id,
	 :rationale, :purpose_tags, :retention_policy, :contains_personal_data, :legal_basis, :quarantine_reason,
	 :resolution_due_date, :payload, :external_reference_id, :snapshot_timestamp, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, draft); err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	return nil
}

// GetByID fetches a draft inside the tenant. A draft belonging to another
// tenant is indistinguishable from a missing one.
func (r *DraftRepository) GetByID(ctx context.Context, tenantID, draftID string) (*models.Draft, error) {
	query := fmt.Sprintf(`SELECT %s FROM drafts WHERE id = $1 AND tenant_id = $2`, draftColumns)
	var draft models.Draft
	if err := r.db.GetContext(ctx, &draft, query, draftID, tenantID); err != nil {
		return nil, err
	}
	return &draft, nil
}

// UpdateMutable persists the mutable draft fields. Binding fields are not in
// the column list, so the statement physically cannot change them. Zero rows
// affected means the draft is missing, foreign, or no longer in DRAFT status.
func (r *DraftRepository) UpdateMutable(ctx context.Context, draft *models.Draft) error {
	draft.UpdatedAt = time.Now().UTC()
	const query = `UPDATE drafts SET
	source_system = :source_system,
	rationale = :rationale,
	purpose_tags = :purpose_tags,
	retention_policy = :retention_policy,
	contains_personal_data = :contains_personal_data,
	legal_basis = :legal_basis,
	quarantine_reason = :quarantine_reason,
	resolution_due_date = :resolution_due_date,
	payload = :payload,
	external_reference_id = :external_reference_id,
	snapshot_timestamp = :snapshot_timestamp,
	updated_at = :updated_at
	WHERE id = :id AND tenant_id = :tenant_id AND status = 'DRAFT'`
	result, err := r.db.NamedExecContext(ctx, query, draft)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check draft update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkStatusTx flips the draft status inside the seal transaction, guarded by
// the expected current status. Zero rows affected means another seal won the
// race; the caller must abort the transaction.
func (r *DraftRepository) MarkStatusTx(ctx context.Context, tx *sqlx.Tx, tenantID, draftID string, from, to models.DraftStatus) error {
	const query = `UPDATE drafts SET status = $1, updated_at = $2
	WHERE id = $3 AND tenant_id = $4 AND status = $5`
	result, err := tx.ExecContext(ctx, query, to, time.Now().UTC(), draftID, tenantID, from)
	if err != nil {
		return fmt.Errorf("mark draft status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check draft status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
