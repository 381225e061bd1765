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

// AttachmentRepository persists attachment metadata. Blob bytes live in the
// storage layer; only the server-computed hash and the storage ref are here.
type AttachmentRepository struct {
	db *sqlx.DB
}

// NewAttachmentRepository constructs the repository.
func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

const attachmentColumns = `id, tenant_id, draft_id, filename, size_bytes, content_type, content_hash, storage_ref, created_at`

// Create inserts attachment metadata.
func (r *AttachmentRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	if attachment.ID == "" {
		attachment.ID = uuid.NewString()
	}
	if attachment.CreatedAt.IsZero() {
		attachment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attachments
	(id, tenant_id, draft_id, filename, size_bytes, content_type, content_hash, storage_ref, created_at)
	VALUES (:id, :tenant_id, :draft_id, :filename, :size_bytes, :content_type, :content_hash, :storage_ref, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attachment); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// GetByID fetches one attachment inside the tenant.
func (r *AttachmentRepository) GetByID(ctx context.Context, tenantID, attachmentID string) (*models.Attachment, error) {
	query := fmt.Sprintf(`SELECT %s FROM attachments WHERE id = $1 AND tenant_id = $2`, attachmentColumns)
	var attachment models.Attachment
	if err := r.db.GetContext(ctx, &attachment, query, attachmentID, tenantID); err != nil {
		return nil, err
	}
	return &attachment, nil
}

// ListByDraft returns all attachments of a draft, oldest first.
func (r *AttachmentRepository) ListByDraft(ctx context.Context, tenantID, draftID string) ([]models.Attachment, error) {
	query := fmt.Sprintf(`SELECT %s FROM attachments WHERE draft_id = $1 AND tenant_id = $2 ORDER BY created_at ASC`, attachmentColumns)
	var attachments []models.Attachment
	if err := r.db.SelectContext(ctx, &attachments, query, draftID, tenantID); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}

// SetContentHash records the server-computed hash once the upload stream has
// been fully consumed.
func (r *AttachmentRepository) SetContentHash(ctx context.Context, tenantID, attachmentID, hash string) error {
	const query = `UPDATE attachments SET content_hash = $1 WHERE id = $2 AND tenant_id = $3`
	result, err := r.db.ExecContext(ctx, query, hash, attachmentID, tenantID)
	if err != nil {
		return fmt.Errorf("set attachment hash: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check attachment hash rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
