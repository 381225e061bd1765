package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/complyvault/evidence-api/internal/models"
)

// EvidenceRepository persists sealed evidence. Rows are written exactly once;
// the only column that ever changes afterwards is the ledger state, and only
// through the guarded AppendState below. No general UPDATE exists on purpose.
type EvidenceRepository struct {
	db *sqlx.DB
}

// NewEvidenceRepository constructs the repository.
func NewEvidenceRepository(db *sqlx.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

const evidenceColumns = `id, tenant_id, draft_id, dataset_type, external_reference_id, ledger_state,
       payload_hash, metadata_hash, trust_level, review_status, retention_policy, sealed_at,
       retention_end, state_history, sealed_by`

// InsertTx writes the sealed record inside the seal transaction. The table
// carries a partial unique index on (tenant_id, dataset_type,
// external_reference_id); a duplicate surfaces as a unique violation, which
// the seal service resolves into replay or conflict.
func (r *EvidenceRepository) InsertTx(ctx context.Context, tx *sqlx.Tx, evidence *models.SealedEvidence) error {
	const query = `INSERT INTO sealed_evidence
	(id, tenant_id, draft_id, dataset_type, external_reference_id, ledger_state, payload_hash,
	 metadata_hash, trust_level, review_status, retention_policy, sealed_at, retention_end,
	 state_history, sealed_by)
	VALUES (:id, :tenant_id, :draft_id, :dataset_type, :external_reference_id, :ledger_state, :payload_hash,
	 :metadata_hash, :trust_level, :review_status, :retention_policy, :sealed_at, :retention_end,
	 :state_history, :sealed_by)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, evidence); err != nil {
		return fmt.Errorf("insert sealed evidence: %w", err)
	}
	return nil
}

// GetByID fetches a sealed record inside the tenant.
func (r *EvidenceRepository) GetByID(ctx context.Context, tenantID, evidenceID string) (*models.SealedEvidence, error) {
	query := fmt.Sprintf(`SELECT %s FROM sealed_evidence WHERE id = $1 AND tenant_id = $2`, evidenceColumns)
	var evidence models.SealedEvidence
	if err := r.db.GetContext(ctx, &evidence, query, evidenceID, tenantID); err != nil {
		return nil, err
	}
	return &evidence, nil
}

// GetByDraftID fetches the sealed record produced from a draft, if any.
func (r *EvidenceRepository) GetByDraftID(ctx context.Context, tenantID, draftID string) (*models.SealedEvidence, error) {
	query := fmt.Sprintf(`SELECT %s FROM sealed_evidence WHERE draft_id = $1 AND tenant_id = $2`, evidenceColumns)
	var evidence models.SealedEvidence
	if err := r.db.GetContext(ctx, &evidence, query, draftID, tenantID); err != nil {
		return nil, err
	}
	return &evidence, nil
}

// FindByExternalRef looks up evidence by the idempotency key.
func (r *EvidenceRepository) FindByExternalRef(ctx context.Context, tenantID string, datasetType models.DatasetType, externalRef string) (*models.SealedEvidence, error) {
	query := fmt.Sprintf(`SELECT %s FROM sealed_evidence
	WHERE tenant_id = $1 AND dataset_type = $2 AND external_reference_id = $3`, evidenceColumns)
	var evidence models.SealedEvidence
	if err := r.db.GetContext(ctx, &evidence, query, tenantID, datasetType, externalRef); err != nil {
		return nil, err
	}
	return &evidence, nil
}

// AppendState advances the ledger state and appends to the state history,
// guarded by the expected current state. Zero rows affected means the record
// moved underneath the caller; the enforcer treats that as a blocked
// transition, not a retry.
func (r *EvidenceRepository) AppendState(ctx context.Context, tenantID, evidenceID string, from, to models.LedgerState, history models.StateHistory) error {
	const query = `UPDATE sealed_evidence SET ledger_state = $1, state_history = $2
	WHERE id = $3 AND tenant_id = $4 AND ledger_state = $5`
	result, err := r.db.ExecContext(ctx, query, to, history, evidenceID, tenantID, from)
	if err != nil {
		return fmt.Errorf("append evidence state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check evidence state rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
