package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyvault/evidence-api/internal/models"
)

func sealedRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "draft_id", "dataset_type", "external_reference_id", "ledger_state",
		"payload_hash", "metadata_hash", "trust_level", "review_status", "retention_policy",
		"sealed_at", "retention_end", "state_history", "sealed_by",
	}).AddRow(
		"ev-1", "tenant-1", "draft-1", "SUPPLIER_MASTER", "ref-1", "SEALED",
		"abc", "def", "MEDIUM", "PENDING_REVIEW", "RETENTION_5Y",
		time.Now(), time.Now().AddDate(5, 0, 0), []byte(`[]`), "actor-1",
	)
}

func TestEvidenceRepositoryInsertTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEvidenceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sealed_evidence").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	err = repo.InsertTx(context.Background(), tx, &models.SealedEvidence{
		ID:              "ev-1",
		TenantID:        "tenant-1",
		DraftID:         "draft-1",
		DatasetType:     models.DatasetSupplierMaster,
		LedgerState:     models.StateSealed,
		PayloadHash:     "abc",
		MetadataHash:    "def",
		TrustLevel:      models.TrustMedium,
		ReviewStatus:    models.ReviewPending,
		RetentionPolicy: models.Retention5Y,
		SealedAt:        time.Now(),
		RetentionEnd:    time.Now().AddDate(5, 0, 0),
		SealedBy:        "actor-1",
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvidenceRepositoryInsertTxUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEvidenceRepository(db)

	pqErr := &pq.Error{Code: "23505", Constraint: "uq_sealed_evidence_external_ref"}
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sealed_evidence").
		WillReturnError(pqErr)
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	err = repo.InsertTx(context.Background(), tx, &models.SealedEvidence{ID: "ev-1"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvidenceRepositoryFindByExternalRef(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEvidenceRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM sealed_evidence").
		WithArgs("tenant-1", models.DatasetSupplierMaster, "ref-1").
		WillReturnRows(sealedRow())

	evidence, err := repo.FindByExternalRef(context.Background(), "tenant-1", models.DatasetSupplierMaster, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "ev-1", evidence.ID)
	assert.Equal(t, models.StateSealed, evidence.LedgerState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvidenceRepositoryAppendStateGuarded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEvidenceRepository(db)

	history := models.StateHistory{{From: models.StateSealed, To: models.StateRejected, Reason: "supplier recalled the dataset", Actor: "actor-1", At: time.Now()}}

	mock.ExpectExec("UPDATE sealed_evidence SET ledger_state = \\$1").
		WithArgs(models.StateRejected, history, "ev-1", "tenant-1", models.StateSealed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AppendState(context.Background(), "tenant-1", "ev-1", models.StateSealed, models.StateRejected, history)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvidenceRepositoryAppendStateLostRace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEvidenceRepository(db)

	mock.ExpectExec("UPDATE sealed_evidence SET ledger_state = \\$1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AppendState(context.Background(), "tenant-1", "ev-1", models.StateSealed, models.StateRejected, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
