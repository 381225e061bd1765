package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/complyvault/evidence-api/internal/models"
	"github.com/complyvault/evidence-api/pkg/clock"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

type evidenceReadStore interface {
	GetByID(ctx context.Context, tenantID, evidenceID string) (*models.SealedEvidence, error)
	GetByDraftID(ctx context.Context, tenantID, draftID string) (*models.SealedEvidence, error)
}

type evidenceCache interface {
	Get(ctx context.Context, tenantID, evidenceID string) (*models.SealedEvidence, error)
	Set(ctx context.Context, evidence *models.SealedEvidence)
}

type receiptRenderer interface {
	Render(evidence *models.SealedEvidence) ([]byte, error)
}

// EvidenceService reads sealed evidence. Records are immutable apart from
// ledger state changes, so reads go through a cache that transitions
// invalidate.
type EvidenceService struct {
	repo     evidenceReadStore
	cache    evidenceCache
	receipts receiptRenderer
	clk      clock.Clock
	logger   *zap.Logger
	timeout  time.Duration
}

// EvidenceServiceOption configures the service.
type EvidenceServiceOption func(*EvidenceService)

// WithEvidenceStorageTimeout bounds repository calls.
func WithEvidenceStorageTimeout(d time.Duration) EvidenceServiceOption {
	return func(s *EvidenceService) { s.timeout = d }
}

// WithEvidenceCache wires the read-through cache.
func WithEvidenceCache(cache evidenceCache) EvidenceServiceOption {
	return func(s *EvidenceService) { s.cache = cache }
}

// WithReceiptRenderer wires the seal receipt generator.
func WithReceiptRenderer(r receiptRenderer) EvidenceServiceOption {
	return func(s *EvidenceService) { s.receipts = r }
}

// NewEvidenceService constructs the service.
func NewEvidenceService(repo evidenceReadStore, clk clock.Clock, logger *zap.Logger, opts ...EvidenceServiceOption) *EvidenceService {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &EvidenceService{
		repo:    repo,
		clk:     clk,
		logger:  logger,
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Get loads one sealed evidence record, cache first.
func (s *EvidenceService) Get(ctx context.Context, tenantID, evidenceID string) (*models.SealedEvidence, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, tenantID, evidenceID); err == nil {
			return cached, nil
		}
	}

	bctx, cancel := boundCtx(ctx, s.timeout)
	defer cancel()
	evidence, err := s.repo.GetByID(bctx, tenantID, evidenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, evidence)
	}
	return evidence, nil
}

// GetByDraft resolves the evidence a draft was sealed into.
func (s *EvidenceService) GetByDraft(ctx context.Context, tenantID, draftID string) (*models.SealedEvidence, error) {
	bctx, cancel := boundCtx(ctx, s.timeout)
	defer cancel()
	evidence, err := s.repo.GetByDraftID(bctx, tenantID, draftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	return evidence, nil
}

// Receipt renders a PDF seal receipt for one record.
func (s *EvidenceService) Receipt(ctx context.Context, tenantID, evidenceID string) ([]byte, error) {
	if s.receipts == nil {
		return nil, appErrors.ErrNotFound
	}
	evidence, err := s.Get(ctx, tenantID, evidenceID)
	if err != nil {
		return nil, err
	}
	pdf, err := s.receipts.Render(evidence)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return pdf, nil
}
