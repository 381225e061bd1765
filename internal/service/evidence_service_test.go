package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyvault/evidence-api/internal/models"
	"github.com/complyvault/evidence-api/pkg/clock"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

type evidenceReadStoreStub struct {
	evidence *models.SealedEvidence
	reads    int
}

func (s *evidenceReadStoreStub) GetByID(ctx context.Context, tenantID, evidenceID string) (*models.SealedEvidence, error) {
	s.reads++
	if s.evidence == nil || s.evidence.TenantID != tenantID || s.evidence.ID != evidenceID {
		return nil, sql.ErrNoRows
	}
	return s.evidence, nil
}

func (s *evidenceReadStoreStub) GetByDraftID(ctx context.Context, tenantID, draftID string) (*models.SealedEvidence, error) {
	if s.evidence == nil || s.evidence.TenantID != tenantID || s.evidence.DraftID != draftID {
		return nil, sql.ErrNoRows
	}
	return s.evidence, nil
}

type evidenceCacheStub struct {
	entries map[string]*models.SealedEvidence
	hits    int
	sets    int
}

func (s *evidenceCacheStub) Get(ctx context.Context, tenantID, evidenceID string) (*models.SealedEvidence, error) {
	if cached, ok := s.entries[tenantID+"/"+evidenceID]; ok {
		s.hits++
		return cached, nil
	}
	return nil, appErrors.ErrCacheMiss
}

func (s *evidenceCacheStub) Set(ctx context.Context, evidence *models.SealedEvidence) {
	if s.entries == nil {
		s.entries = make(map[string]*models.SealedEvidence)
	}
	s.entries[evidence.TenantID+"/"+evidence.ID] = evidence
	s.sets++
}

func TestEvidenceGetReadThroughCache(t *testing.T) {
	store := &evidenceReadStoreStub{evidence: sealedRecord(models.StateSealed)}
	cache := &evidenceCacheStub{}
	svc := NewEvidenceService(store, clock.FixedClock{At: testTime}, nil, WithEvidenceCache(cache))

	first, err := svc.Get(context.Background(), "tenant-1", "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Get(context.Background(), "tenant-1", "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.ID, second.ID)
}

func TestEvidenceGetCrossTenantIsNotFound(t *testing.T) {
	store := &evidenceReadStoreStub{evidence: sealedRecord(models.StateSealed)}
	svc := NewEvidenceService(store, clock.FixedClock{At: testTime}, nil)

	_, err := svc.Get(context.Background(), "tenant-2", "ev-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEvidenceGetByDraft(t *testing.T) {
	record := sealedRecord(models.StateSealed)
	record.DraftID = "draft-1"
	store := &evidenceReadStoreStub{evidence: record}
	svc := NewEvidenceService(store, clock.FixedClock{At: testTime}, nil)

	found, err := svc.GetByDraft(context.Background(), "tenant-1", "draft-1")
	require.NoError(t, err)
	assert.Equal(t, "ev-1", found.ID)
}

type receiptRendererStub struct {
	rendered int
}

func (s *receiptRendererStub) Render(evidence *models.SealedEvidence) ([]byte, error) {
	s.rendered++
	return []byte("%PDF-1.4"), nil
}

func TestEvidenceReceipt(t *testing.T) {
	store := &evidenceReadStoreStub{evidence: sealedRecord(models.StateSealed)}
	renderer := &receiptRendererStub{}
	svc := NewEvidenceService(store, clock.FixedClock{At: testTime}, nil, WithReceiptRenderer(renderer))

	pdf, err := svc.Receipt(context.Background(), "tenant-1", "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 1, renderer.rendered)
	assert.Contains(t, string(pdf), "%PDF")
}
