package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyvault/evidence-api/internal/dto"
	"github.com/complyvault/evidence-api/internal/models"
	"github.com/complyvault/evidence-api/pkg/clock"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

type evidenceTransitionStoreStub struct {
	evidence  *models.SealedEvidence
	appendErr error
	appended  models.StateHistory
}

func (s *evidenceTransitionStoreStub) GetByID(ctx context.Context, tenantID, evidenceID string) (*models.SealedEvidence, error) {
	if s.evidence == nil || s.evidence.TenantID != tenantID || s.evidence.ID != evidenceID {
		return nil, sql.ErrNoRows
	}
	clone := *s.evidence
	return &clone, nil
}

func (s *evidenceTransitionStoreStub) AppendState(ctx context.Context, tenantID, evidenceID string, from, to models.LedgerState, history models.StateHistory) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.evidence.LedgerState = to
	s.evidence.StateHistory = history
	s.appended = history
	return nil
}

type invalidatorStub struct {
	invalidated []string
}

func (s *invalidatorStub) Invalidate(ctx context.Context, tenantID, evidenceID string) {
	s.invalidated = append(s.invalidated, evidenceID)
}

type transitionMetricsStub struct {
	ok      int
	blocked int
}

func (s *transitionMetricsStub) ObserveTransition(from, to string)        { s.ok++ }
func (s *transitionMetricsStub) ObserveTransitionBlocked(from, to string) { s.blocked++ }

func sealedRecord(state models.LedgerState) *models.SealedEvidence {
	return &models.SealedEvidence{
		ID:          "ev-1",
		TenantID:    "tenant-1",
		LedgerState: state,
		StateHistory: models.StateHistory{{
			From: models.StateDraft, To: state, Reason: "sealed", Actor: "actor-1", At: testTime,
		}},
	}
}

func TestTransitionSealedToRejected(t *testing.T) {
	store := &evidenceTransitionStoreStub{evidence: sealedRecord(models.StateSealed)}
	audit := &auditLogStub{}
	cache := &invalidatorStub{}
	metrics := &transitionMetricsStub{}
	svc := NewTransitionService(store, audit, clock.FixedClock{At: testTime}, nil,
		WithTransitionCache(cache), WithTransitionMetrics(metrics))

	result, err := svc.Transition(context.Background(), "tenant-1", "ev-1",
		dto.TransitionRequest{ToState: models.StateRejected, Reason: "supplier recalled the dataset"}, "actor-1", "corr-1")
	require.NoError(t, err)

	assert.Equal(t, models.StateRejected, result.LedgerState)
	require.Len(t, result.StateHistory, 2)
	assert.Equal(t, models.StateSealed, result.StateHistory[1].From)
	assert.Equal(t, models.StateRejected, result.StateHistory[1].To)
	assert.Equal(t, []string{models.AuditStateTransitioned}, audit.events)
	assert.Equal(t, []string{"ev-1"}, cache.invalidated)
	assert.Equal(t, 1, metrics.ok)
}

func TestTransitionQuarantinedToRejected(t *testing.T) {
	store := &evidenceTransitionStoreStub{evidence: sealedRecord(models.StateQuarantined)}
	svc := NewTransitionService(store, &auditLogStub{}, clock.FixedClock{At: testTime}, nil)

	result, err := svc.Transition(context.Background(), "tenant-1", "ev-1",
		dto.TransitionRequest{ToState: models.StateRejected, Reason: "scope could not be resolved before the due date"}, "actor-1", "corr-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateRejected, result.LedgerState)
}

func TestTransitionQuarantinedCannotBeSealed(t *testing.T) {
	store := &evidenceTransitionStoreStub{evidence: sealedRecord(models.StateQuarantined)}
	audit := &auditLogStub{}
	metrics := &transitionMetricsStub{}
	svc := NewTransitionService(store, audit, clock.FixedClock{At: testTime}, nil, WithTransitionMetrics(metrics))

	_, err := svc.Transition(context.Background(), "tenant-1", "ev-1",
		dto.TransitionRequest{ToState: models.StateSealed, Reason: "scope resolved to the parent legal entity"}, "actor-1", "corr-1")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTransitionBlocked.Code, appErr.Code)
	assert.Equal(t, []models.LedgerState{models.StateRejected}, appErr.Detail["allowed_transitions"])
	assert.Equal(t, []string{models.AuditStateTransitionBlocked}, audit.events)
	assert.Equal(t, 1, metrics.blocked)
	assert.Equal(t, models.StateQuarantined, store.evidence.LedgerState)
}

func TestTransitionBlockedIsAuditedAndCounted(t *testing.T) {
	store := &evidenceTransitionStoreStub{evidence: sealedRecord(models.StateRejected)}
	audit := &auditLogStub{}
	metrics := &transitionMetricsStub{}
	svc := NewTransitionService(store, audit, clock.FixedClock{At: testTime}, nil, WithTransitionMetrics(metrics))

	_, err := svc.Transition(context.Background(), "tenant-1", "ev-1",
		dto.TransitionRequest{ToState: models.StateSealed, Reason: "trying to resurrect a rejected record"}, "actor-1", "corr-1")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTransitionBlocked.Code, appErr.Code)
	assert.Equal(t, []models.LedgerState{}, appErr.Detail["allowed_transitions"])
	assert.Equal(t, []string{models.AuditStateTransitionBlocked}, audit.events)
	assert.Equal(t, 1, metrics.blocked)
	assert.Equal(t, models.StateRejected, store.evidence.LedgerState)
}

func TestTransitionSealedCannotReenterClassification(t *testing.T) {
	store := &evidenceTransitionStoreStub{evidence: sealedRecord(models.StateSealed)}
	svc := NewTransitionService(store, &auditLogStub{}, clock.FixedClock{At: testTime}, nil)

	_, err := svc.Transition(context.Background(), "tenant-1", "ev-1",
		dto.TransitionRequest{ToState: models.StateClassified, Reason: "classification is a separate flow"}, "actor-1", "corr-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTransitionBlocked.Code, appErr.Code)
}

func TestTransitionConcurrentLossIsBlocked(t *testing.T) {
	store := &evidenceTransitionStoreStub{evidence: sealedRecord(models.StateSealed), appendErr: sql.ErrNoRows}
	svc := NewTransitionService(store, &auditLogStub{}, clock.FixedClock{At: testTime}, nil)

	_, err := svc.Transition(context.Background(), "tenant-1", "ev-1",
		dto.TransitionRequest{ToState: models.StateRejected, Reason: "losing side of a concurrent transition"}, "actor-1", "corr-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTransitionBlocked.Code, appErr.Code)
}

func TestTransitionCrossTenantIsNotFound(t *testing.T) {
	store := &evidenceTransitionStoreStub{evidence: sealedRecord(models.StateSealed)}
	svc := NewTransitionService(store, &auditLogStub{}, clock.FixedClock{At: testTime}, nil)

	_, err := svc.Transition(context.Background(), "tenant-2", "ev-1",
		dto.TransitionRequest{ToState: models.StateRejected, Reason: "cross tenant access attempt"}, "actor-1", "corr-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
