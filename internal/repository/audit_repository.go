package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/complyvault/evidence-api/internal/models"
)

// AuditRepository appends to the immutable audit trail. There is no update
// and no delete here, and there never will be.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `id, tenant_id, correlation_id, event_type, subject_id, actor, detail, created_at`

const auditInsert = `INSERT INTO audit_events
	(id, tenant_id, correlation_id, event_type, subject_id, actor, detail, created_at)
	VALUES (:id, :tenant_id, :correlation_id, :event_type, :subject_id, :actor, :detail, :created_at)`

// Append writes one audit event.
func (r *AuditRepository) Append(ctx context.Context, event *models.AuditEvent) error {
	return appendAudit(ctx, r.db, event)
}

// AppendTx writes one audit event inside an existing transaction, so a seal
// and its audit record commit together.
func (r *AuditRepository) AppendTx(ctx context.Context, tx *sqlx.Tx, event *models.AuditEvent) error {
	return appendAudit(ctx, tx, event)
}

func appendAudit(ctx context.Context, ext sqlx.ExtContext, event *models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if _, err := sqlx.NamedExecContext(ctx, ext, auditInsert, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListBySubject returns the trail for one draft or evidence record, newest
// first.
func (r *AuditRepository) ListBySubject(ctx context.Context, tenantID, subjectID string, limit, offset int) ([]models.AuditEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM audit_events
	WHERE tenant_id = $1 AND subject_id = $2
	ORDER BY created_at DESC LIMIT %d OFFSET %d`, auditColumns, limit, offset)
	var events []models.AuditEvent
	if err := r.db.SelectContext(ctx, &events, query, tenantID, subjectID); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
