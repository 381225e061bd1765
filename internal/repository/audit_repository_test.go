package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyvault/evidence-api/internal/models"
)

func TestAuditRepositoryAppend(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.AuditEvent{
		TenantID:  "tenant-1",
		EventType: models.AuditDraftCreated,
		SubjectID: "draft-1",
		Actor:     "actor-1",
	}
	err := repo.Append(context.Background(), event)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryAppendTxJoinsTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	err = repo.AppendTx(context.Background(), tx, &models.AuditEvent{
		TenantID:  "tenant-1",
		EventType: models.AuditEvidenceSealed,
		SubjectID: "ev-1",
		Actor:     "actor-1",
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListBySubjectClampsLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "correlation_id", "event_type", "subject_id", "actor", "detail", "created_at"}).
		AddRow("a-1", "tenant-1", "corr-1", models.AuditDraftCreated, "draft-1", "actor-1", []byte(`{}`), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM audit_events\\s+WHERE tenant_id = \\$1 AND subject_id = \\$2\\s+ORDER BY created_at DESC LIMIT 50 OFFSET 0").
		WithArgs("tenant-1", "draft-1").
		WillReturnRows(rows)

	events, err := repo.ListBySubject(context.Background(), "tenant-1", "draft-1", 9999, -5)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, models.AuditDraftCreated, events[0].EventType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
