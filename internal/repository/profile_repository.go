package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/complyvault/evidence-api/internal/models"
)

// ProfileRepository reads ingestion profiles. The kernel never writes them;
// they are maintained by the contracting subsystem.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindActive returns the active, unexpired profile for a tenant and dataset
// type, or sql.ErrNoRows when ingestion is not contracted. A profile past its
// expiry no longer gates ingestion open even if its status was never flipped.
func (r *ProfileRepository) FindActive(ctx context.Context, tenantID string, datasetType models.DatasetType) (*models.IngestionProfile, error) {
	const query = `SELECT id, tenant_id, dataset_type, status, entity_type, ingestion_path, authority_type, created_at, expires_at
	FROM ingestion_profiles
	WHERE tenant_id = $1 AND dataset_type = $2 AND status = 'ACTIVE'
	AND (expires_at IS NULL OR expires_at > now())
	ORDER BY created_at DESC LIMIT 1`
	var profile models.IngestionProfile
	if err := r.db.GetContext(ctx, &profile, query, tenantID, datasetType); err != nil {
		return nil, err
	}
	return &profile, nil
}
