package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/complyvault/evidence-api/internal/dto"
	"github.com/complyvault/evidence-api/internal/models"
	"github.com/complyvault/evidence-api/internal/validation"
	"github.com/complyvault/evidence-api/pkg/canonical"
	"github.com/complyvault/evidence-api/pkg/clock"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type draftSealStore interface {
	GetByID(ctx context.Context, tenantID, draftID string) (*models.Draft, error)
	MarkStatusTx(ctx context.Context, tx *sqlx.Tx, tenantID, draftID string, from, to models.DraftStatus) error
}

type evidenceSealStore interface {
	InsertTx(ctx context.Context, tx *sqlx.Tx, evidence *models.SealedEvidence) error
	FindByExternalRef(ctx context.Context, tenantID string, datasetType models.DatasetType, externalRef string) (*models.SealedEvidence, error)
}

type auditTxLogger interface {
	auditLogger
	LogTx(ctx context.Context, tx *sqlx.Tx, tenantID, correlationID, eventType, subjectID, actor string, detail map[string]interface{}) error
}

type uniqueViolationCheck func(err error) bool

type sealMetrics interface {
	ObserveSeal(outcome string)
	ObserveIdempotentReplay()
	ObserveIdempotencyConflict()
}

// SealService turns a draft into an immutable sealed evidence record. The
// seal itself runs in one transaction: evidence insert, draft status flip and
// audit entry commit together or not at all.
type SealService struct {
	tx        txRunner
	drafts    draftSealStore
	evidence  evidenceSealStore
	files     attachmentLister
	audit     auditTxLogger
	metrics   sealMetrics
	isUnique  uniqueViolationCheck
	clk       clock.Clock
	ids       clock.IDProvider
	logger    *zap.Logger
	timeout   time.Duration
	retention models.RetentionPolicy
}

// SealServiceOption configures the service.
type SealServiceOption func(*SealService)

// WithSealStorageTimeout bounds repository calls.
func WithSealStorageTimeout(d time.Duration) SealServiceOption {
	return func(s *SealService) { s.timeout = d }
}

// WithDefaultRetention sets the policy applied when a draft declares none.
func WithDefaultRetention(p models.RetentionPolicy) SealServiceOption {
	return func(s *SealService) { s.retention = p }
}

// WithSealMetrics wires seal outcome counters.
func WithSealMetrics(m sealMetrics) SealServiceOption {
	return func(s *SealService) { s.metrics = m }
}

// NewSealService constructs the service.
func NewSealService(tx txRunner, drafts draftSealStore, evidence evidenceSealStore, files attachmentLister, audit auditTxLogger, isUnique uniqueViolationCheck, clk clock.Clock, ids clock.IDProvider, logger *zap.Logger, opts ...SealServiceOption) *SealService {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if ids == nil {
		ids = clock.UUIDProvider{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &SealService{
		tx:        tx,
		drafts:    drafts,
		evidence:  evidence,
		files:     files,
		audit:     audit,
		metrics:   noopSealMetrics{},
		isUnique:  isUnique,
		clk:       clk,
		ids:       ids,
		logger:    logger,
		timeout:   5 * time.Second,
		retention: models.Retention5Y,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Seal executes the sealing pipeline for one draft.
func (s *SealService) Seal(ctx context.Context, tenantID, draftID, actor, correlationID string) (*dto.SealResponse, error) {
	bctx, cancel := boundCtx(ctx, s.timeout)
	draft, err := s.drafts.GetByID(bctx, tenantID, draftID)
	cancel()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	if draft.Status != models.DraftStatusDraft {
		return nil, s.reject(ctx, tenantID, draftID, actor, correlationID, appErrors.ErrSealedImmutable)
	}

	bctx, cancel = boundCtx(ctx, s.timeout)
	attachments, err := s.files.ListByDraft(bctx, tenantID, draftID)
	cancel()
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	now := s.clk.Now()
	if precondErr := sealPreconditionError(draft, attachments, now); precondErr != nil {
		return nil, s.reject(ctx, tenantID, draftID, actor, correlationID, precondErr)
	}

	payloadHash, err := s.payloadHash(draft, attachments)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	if draft.ExternalReferenceID != nil {
		existing, lookupErr := s.lookupExternalRef(ctx, tenantID, draft.DatasetType, *draft.ExternalReferenceID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			return s.resolveIdempotency(ctx, tenantID, draftID, actor, correlationID, existing, payloadHash)
		}
	}

	metadataHash, err := metadataHash(draft)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	ledgerState := models.StateSealed
	if draft.DeclaredScope == models.ScopeUnknown {
		ledgerState = models.StateQuarantined
	}

	retention := draft.RetentionPolicy
	if retention.Years() == 0 {
		retention = s.retention
	}

	evidence := &models.SealedEvidence{
		ID:                  s.ids.NewID(),
		TenantID:            tenantID,
		DraftID:             draftID,
		DatasetType:         draft.DatasetType,
		ExternalReferenceID: draft.ExternalReferenceID,
		LedgerState:         ledgerState,
		PayloadHash:         payloadHash,
		MetadataHash:        metadataHash,
		TrustLevel:          models.TrustLevelFor(draft.IngestionMethod),
		ReviewStatus:        models.ReviewPending,
		RetentionPolicy:     retention,
		SealedAt:            now,
		RetentionEnd:        now.AddDate(retention.Years(), 0, 0),
		StateHistory: models.StateHistory{{
			From:   models.StateDraft,
			To:     ledgerState,
			Reason: "sealed",
			Actor:  actor,
			At:     now,
		}},
		SealedBy: actor,
	}

	targetStatus := models.DraftStatusSealed
	if ledgerState == models.StateQuarantined {
		targetStatus = models.DraftStatusQuarantined
	}

	bctx, cancel = boundCtx(ctx, s.timeout)
	err = s.tx.WithinTx(bctx, func(tx *sqlx.Tx) error {
		if err := s.evidence.InsertTx(bctx, tx, evidence); err != nil {
			return err
		}
		if err := s.drafts.MarkStatusTx(bctx, tx, tenantID, draftID, models.DraftStatusDraft, targetStatus); err != nil {
			return err
		}
		return s.audit.LogTx(bctx, tx, tenantID, correlationID, models.AuditEvidenceSealed, evidence.ID, actor, map[string]interface{}{
			"draft_id":      draftID,
			"ledger_state":  ledgerState,
			"payload_hash":  payloadHash,
			"metadata_hash": metadataHash,
		})
	})
	cancel()
	if err != nil {
		if s.isUnique != nil && s.isUnique(err) && draft.ExternalReferenceID != nil {
			// Lost the insert race. Re-read the winner and resolve.
			existing, lookupErr := s.lookupExternalRef(ctx, tenantID, draft.DatasetType, *draft.ExternalReferenceID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing != nil {
				return s.resolveIdempotency(ctx, tenantID, draftID, actor, correlationID, existing, payloadHash)
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			// Concurrent seal flipped the draft status first.
			return nil, s.reject(ctx, tenantID, draftID, actor, correlationID, appErrors.ErrSealedImmutable)
		}
		s.metrics.ObserveSeal("error")
		return nil, appErrors.FromError(err)
	}

	s.metrics.ObserveSeal(string(ledgerState))
	s.logger.Info("evidence sealed",
		zap.String("tenant_id", tenantID),
		zap.String("draft_id", draftID),
		zap.String("evidence_id", evidence.ID),
		zap.String("ledger_state", string(ledgerState)))

	return &dto.SealResponse{
		EvidenceID:   evidence.ID,
		LedgerState:  evidence.LedgerState,
		PayloadHash:  evidence.PayloadHash,
		MetadataHash: evidence.MetadataHash,
		SealedAt:     evidence.SealedAt,
		RetentionEnd: evidence.RetentionEnd,
		TrustLevel:   evidence.TrustLevel,
	}, nil
}

func (s *SealService) lookupExternalRef(ctx context.Context, tenantID string, datasetType models.DatasetType, externalRef string) (*models.SealedEvidence, error) {
	bctx, cancel := boundCtx(ctx, s.timeout)
	defer cancel()
	existing, err := s.evidence.FindByExternalRef(bctx, tenantID, datasetType, externalRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.FromError(err)
	}
	return existing, nil
}

// resolveIdempotency decides between a replay (same payload, return the
// existing record) and a conflict (same reference, different payload).
func (s *SealService) resolveIdempotency(ctx context.Context, tenantID, draftID, actor, correlationID string, existing *models.SealedEvidence, payloadHash string) (*dto.SealResponse, error) {
	if existing.PayloadHash == payloadHash {
		if err := s.audit.Log(ctx, tenantID, correlationID, models.AuditIdempotentReplay, existing.ID, actor, map[string]interface{}{
			"draft_id":     draftID,
			"payload_hash": payloadHash,
		}); err != nil {
			return nil, err
		}
		s.metrics.ObserveIdempotentReplay()
		return &dto.SealResponse{
			EvidenceID:   existing.ID,
			LedgerState:  existing.LedgerState,
			PayloadHash:  existing.PayloadHash,
			MetadataHash: existing.MetadataHash,
			SealedAt:     existing.SealedAt,
			RetentionEnd: existing.RetentionEnd,
			TrustLevel:   existing.TrustLevel,
		}, nil
	}

	conflictErr := appErrors.WithDetail(appErrors.ErrIdempotencyConflict, map[string]interface{}{
		"existing_evidence_id":  existing.ID,
		"existing_payload_hash": existing.PayloadHash,
		"provided_payload_hash": payloadHash,
	})
	if err := s.audit.Log(ctx, tenantID, correlationID, models.AuditIdempotencyConflict, existing.ID, actor, rejectionDetail(conflictErr)); err != nil {
		return nil, err
	}
	s.metrics.ObserveIdempotencyConflict()
	return nil, conflictErr
}

func (s *SealService) reject(ctx context.Context, tenantID, draftID, actor, correlationID string, cause *appErrors.Error) error {
	if err := s.audit.Log(ctx, tenantID, correlationID, models.AuditSealRejected, draftID, actor, rejectionDetail(cause)); err != nil {
		return err
	}
	s.metrics.ObserveSeal("rejected")
	return cause
}

// payloadHash is the merkle root over the attachment content hashes when
// files are present, otherwise the hash of the inline payload.
func (s *SealService) payloadHash(draft *models.Draft, attachments []models.Attachment) (string, error) {
	if len(attachments) > 0 {
		leaves := make([]string, 0, len(attachments))
		for _, a := range attachments {
			if a.ContentHash == nil {
				return "", appErrors.ErrFileHashMissing
			}
			leaves = append(leaves, *a.ContentHash)
		}
		return canonical.MerkleRoot(leaves)
	}
	return canonical.HashBytes(draft.Payload), nil
}

// metadataHash covers every declared (caller-supplied) field. Server-assigned
// values like the seal instant stay out so the hash is reproducible from the
// declaration; the payload is fingerprinted separately by payloadHash.
func metadataHash(draft *models.Draft) (string, error) {
	declared := map[string]interface{}{
		"ingestion_method":       draft.IngestionMethod,
		"source_system":          draft.SourceSystem,
		"dataset_type":           draft.DatasetType,
		"declared_scope":         draft.DeclaredScope,
		"scope_target_id":        draft.ScopeTargetID,
		"rationale":              draft.Rationale,
		"purpose_tags":           []string(draft.PurposeTags),
		"retention_policy":       draft.RetentionPolicy,
		"contains_personal_data": draft.ContainsPersonal,
		"legal_basis":            draft.LegalBasis,
		"quarantine_reason":      draft.QuarantineReason,
		"resolution_due_date":    draft.ResolutionDueDate,
		"external_reference_id":  draft.ExternalReferenceID,
		"snapshot_timestamp":     draft.SnapshotTimestamp,
	}
	return canonical.HashJSON(declared)
}

// sealPreconditionError maps the first failed method precondition to its
// typed error. The checks mirror SealMissingFields.
func sealPreconditionError(draft *models.Draft, attachments []models.Attachment, now time.Time) *appErrors.Error {
	if result := validation.CheckCompatibility(draft.IngestionMethod, draft.DatasetType, draft.DeclaredScope); !result.Allowed {
		return appErrors.WithFields(appErrors.ErrValidation, appErrors.FieldError{
			Field: "dataset_type", Code: "INCOMPATIBLE", Message: result.Reason,
		})
	}
	if fields := validation.CheckScopeFields(draft.DeclaredScope, draft.ScopeTargetID, draft.QuarantineReason, draft.ResolutionDueDate, now); len(fields) > 0 {
		return appErrors.WithFields(appErrors.ErrValidation, fields...)
	}

	switch draft.IngestionMethod {
	case models.MethodFileUpload:
		if len(attachments) == 0 {
			return appErrors.ErrFileRequired
		}
		for _, a := range attachments {
			if a.ContentHash == nil {
				return appErrors.ErrFileHashMissing
			}
		}
	case models.MethodManualEntry:
		if len(draft.Payload) == 0 || !json.Valid(draft.Payload) {
			return appErrors.ErrPayloadRequired
		}
	case models.MethodAPIPush:
		if draft.ExternalReferenceID == nil || *draft.ExternalReferenceID == "" {
			return appErrors.ErrExternalRefRequired
		}
	case models.MethodERPExport:
		if draft.SnapshotTimestamp == nil {
			return appErrors.ErrSnapshotRequired
		}
	}

	if len(attachments) == 0 && len(draft.Payload) == 0 {
		return appErrors.ErrPayloadRequired
	}
	return nil
}

// SealMissingFields lists everything still blocking a seal, for the pre-seal
// preview. Unlike sealPreconditionError it keeps going after the first miss.
func SealMissingFields(draft *models.Draft, attachments []models.Attachment, now time.Time) []string {
	missing := []string{}

	if result := validation.CheckCompatibility(draft.IngestionMethod, draft.DatasetType, draft.DeclaredScope); !result.Allowed {
		missing = append(missing, "compatible_declaration")
	}
	for _, fe := range validation.CheckScopeFields(draft.DeclaredScope, draft.ScopeTargetID, draft.QuarantineReason, draft.ResolutionDueDate, now) {
		missing = append(missing, fe.Field)
	}

	switch draft.IngestionMethod {
	case models.MethodFileUpload:
		if len(attachments) == 0 {
			missing = append(missing, "attachments")
		}
		for _, a := range attachments {
			if a.ContentHash == nil {
				missing = append(missing, "attachment_content_hash")
				break
			}
		}
	case models.MethodManualEntry:
		if len(draft.Payload) == 0 || !json.Valid(draft.Payload) {
			missing = append(missing, "payload")
		}
	case models.MethodAPIPush:
		if draft.ExternalReferenceID == nil || *draft.ExternalReferenceID == "" {
			missing = append(missing, "external_reference_id")
		}
	case models.MethodERPExport:
		if draft.SnapshotTimestamp == nil {
			missing = append(missing, "snapshot_timestamp")
		}
	}

	if len(attachments) == 0 && len(draft.Payload) == 0 && !contains(missing, "payload") && !contains(missing, "attachments") {
		missing = append(missing, "payload")
	}
	return missing
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}

type noopSealMetrics struct{}

func (noopSealMetrics) ObserveSeal(string)          {}
func (noopSealMetrics) ObserveIdempotentReplay()    {}
func (noopSealMetrics) ObserveIdempotencyConflict() {}
