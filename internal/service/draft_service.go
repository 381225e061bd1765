package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/complyvault/evidence-api/internal/dto"
	"github.com/complyvault/evidence-api/internal/models"
	"github.com/complyvault/evidence-api/internal/validation"
	"github.com/complyvault/evidence-api/pkg/clock"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

type draftStore interface {
	Create(ctx context.Context, draft *models.Draft) error
	GetByID(ctx context.Context, tenantID, draftID string) (*models.Draft, error)
	UpdateMutable(ctx context.Context, draft *models.Draft) error
}

type profileStore interface {
	FindActive(ctx context.Context, tenantID string, datasetType models.DatasetType) (*models.IngestionProfile, error)
}

type attachmentLister interface {
	ListByDraft(ctx context.Context, tenantID, draftID string) ([]models.Attachment, error)
}

type auditLogger interface {
	Log(ctx context.Context, tenantID, correlationID, eventType, subjectID, actor string, detail map[string]interface{}) error
}

// DraftService manages the draft lifecycle up to the seal.
type DraftService struct {
	repo        draftStore
	profiles    profileStore
	attachments attachmentLister
	audit       auditLogger
	validate    *validator.Validate
	clk         clock.Clock
	ids         clock.IDProvider
	logger      *zap.Logger
	timeout     time.Duration
	profileGate bool
}

// DraftServiceOption configures the service.
type DraftServiceOption func(*DraftService)

// WithDraftStorageTimeout bounds repository calls.
func WithDraftStorageTimeout(d time.Duration) DraftServiceOption {
	return func(s *DraftService) { s.timeout = d }
}

// WithProfileGate toggles the ingestion-profile check.
func WithProfileGate(enabled bool) DraftServiceOption {
	return func(s *DraftService) { s.profileGate = enabled }
}

// NewDraftService constructs the service.
func NewDraftService(repo draftStore, profiles profileStore, attachments attachmentLister, audit auditLogger, clk clock.Clock, ids clock.IDProvider, logger *zap.Logger, opts ...DraftServiceOption) *DraftService {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if ids == nil {
		ids = clock.UUIDProvider{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &DraftService{
		repo:        repo,
		profiles:    profiles,
		attachments: attachments,
		audit:       audit,
		validate:    validator.New(),
		clk:         clk,
		ids:         ids,
		logger:      logger,
		timeout:     5 * time.Second,
		profileGate: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// CreateDraft validates the declaration and persists a new draft. Every
// outcome, including rejections, lands in the audit trail.
func (s *DraftService) CreateDraft(ctx context.Context, tenantID string, req dto.CreateDraftRequest, actor, correlationID string) (*models.Draft, error) {
	now := s.clk.Now()

	if fields := s.validateDeclaration(req, now); len(fields) > 0 {
		verr := appErrors.WithFields(appErrors.ErrValidation, fields...)
		if err := s.audit.Log(ctx, tenantID, correlationID, models.AuditDraftRejected, "", actor, rejectionDetail(verr)); err != nil {
			return nil, err
		}
		return nil, verr
	}

	if s.profileGate {
		bctx, cancel := boundCtx(ctx, s.timeout)
		_, err := s.profiles.FindActive(bctx, tenantID, req.DatasetType)
		cancel()
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				gateErr := appErrors.ErrIngestionNotAllowed
				if auditErr := s.audit.Log(ctx, tenantID, correlationID, models.AuditDraftRejected, "", actor, rejectionDetail(gateErr)); auditErr != nil {
					return nil, auditErr
				}
				return nil, gateErr
			}
			return nil, appErrors.FromError(err)
		}
	}

	draft := &models.Draft{
		ID:                  s.ids.NewID(),
		TenantID:            tenantID,
		IngestionMethod:     req.IngestionMethod,
		SourceSystem:        strings.TrimSpace(req.SourceSystem),
		DatasetType:         req.DatasetType,
		DeclaredScope:       req.DeclaredScope,
		ScopeTargetID:       trimmedPtr(req.ScopeTargetID),
		Rationale:           strings.TrimSpace(req.Rationale),
		PurposeTags:         normalizeTags(req.PurposeTags),
		RetentionPolicy:     req.RetentionPolicy,
		ContainsPersonal:    req.ContainsPersonal,
		LegalBasis:          trimmedPtr(req.LegalBasis),
		QuarantineReason:    trimmedPtr(req.QuarantineReason),
		ResolutionDueDate:   req.ResolutionDueDate,
		Payload:             req.Payload,
		ExternalReferenceID: trimmedPtr(req.ExternalReferenceID),
		SnapshotTimestamp:   req.SnapshotTimestamp,
		Status:              models.DraftStatusDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	bctx, cancel := boundCtx(ctx, s.timeout)
	err := s.repo.Create(bctx, draft)
	cancel()
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	if err := s.audit.Log(ctx, tenantID, correlationID, models.AuditDraftCreated, draft.ID, actor, map[string]interface{}{
		"ingestion_method": draft.IngestionMethod,
		"dataset_type":     draft.DatasetType,
		"declared_scope":   draft.DeclaredScope,
	}); err != nil {
		return nil, err
	}
	return draft, nil
}

// GetDraft loads a draft within the tenant.
func (s *DraftService) GetDraft(ctx context.Context, tenantID, draftID string) (*models.Draft, error) {
	bctx, cancel := boundCtx(ctx, s.timeout)
	defer cancel()
	draft, err := s.repo.GetByID(bctx, tenantID, draftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	return draft, nil
}

// UpdateDraft applies a patch to the mutable fields. rawBody is the original
// request body; any binding field present there is rejected before the typed
// patch is even considered.
func (s *DraftService) UpdateDraft(ctx context.Context, tenantID, draftID string, rawBody []byte, req dto.UpdateDraftRequest, actor, correlationID string) (*models.Draft, error) {
	if rejected := dto.RejectedBindingFields(rawBody); len(rejected) > 0 {
		bindErr := appErrors.WithDetail(appErrors.ErrBindingImmutable, map[string]interface{}{"rejected_fields": rejected})
		if err := s.audit.Log(ctx, tenantID, correlationID, models.AuditDraftUpdateRejected, draftID, actor, rejectionDetail(bindErr)); err != nil {
			return nil, err
		}
		return nil, bindErr
	}

	draft, err := s.GetDraft(ctx, tenantID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != models.DraftStatusDraft {
		sealErr := appErrors.ErrSealedImmutable
		if auditErr := s.audit.Log(ctx, tenantID, correlationID, models.AuditDraftUpdateRejected, draftID, actor, rejectionDetail(sealErr)); auditErr != nil {
			return nil, auditErr
		}
		return nil, sealErr
	}

	applyPatch(draft, req)

	if fields := s.validateDraftFields(draft); len(fields) > 0 {
		verr := appErrors.WithFields(appErrors.ErrValidation, fields...)
		if err := s.audit.Log(ctx, tenantID, correlationID, models.AuditDraftUpdateRejected, draftID, actor, rejectionDetail(verr)); err != nil {
			return nil, err
		}
		return nil, verr
	}

	bctx, cancel := boundCtx(ctx, s.timeout)
	err = s.repo.UpdateMutable(bctx, draft)
	cancel()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost a race against a concurrent seal.
			return nil, appErrors.ErrSealedImmutable
		}
		return nil, appErrors.FromError(err)
	}

	if err := s.audit.Log(ctx, tenantID, correlationID, models.AuditDraftUpdated, draftID, actor, nil); err != nil {
		return nil, err
	}
	return draft, nil
}

// ForSeal returns the pre-seal snapshot: draft metadata, attachments and the
// readiness verdict with the concrete missing fields.
func (s *DraftService) ForSeal(ctx context.Context, tenantID, draftID string) (*dto.ForSealResponse, error) {
	draft, err := s.GetDraft(ctx, tenantID, draftID)
	if err != nil {
		return nil, err
	}

	bctx, cancel := boundCtx(ctx, s.timeout)
	attachments, err := s.attachments.ListByDraft(bctx, tenantID, draftID)
	cancel()
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	missing := SealMissingFields(draft, attachments, s.clk.Now())
	return &dto.ForSealResponse{
		DraftID:  draft.ID,
		Metadata: draft,
		Files:    attachments,
		Validation: dto.SealReadiness{
			ReadyToSeal:   len(missing) == 0 && draft.Status == models.DraftStatusDraft,
			MissingFields: missing,
		},
	}, nil
}

func (s *DraftService) validateDeclaration(req dto.CreateDraftRequest, now time.Time) []appErrors.FieldError {
	var fields []appErrors.FieldError

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, appErrors.FieldError{
					Field:   strings.ToLower(fe.Field()),
					Code:    "REQUIRED",
					Message: fe.Field() + " is required",
				})
			}
		}
	}

	if req.IngestionMethod != "" && !validMethod(req.IngestionMethod) {
		fields = append(fields, appErrors.FieldError{Field: "ingestion_method", Code: "UNSUPPORTED", Message: "unsupported ingestion method"})
	}
	if req.DatasetType != "" && !validDataset(req.DatasetType) {
		fields = append(fields, appErrors.FieldError{Field: "dataset_type", Code: "UNSUPPORTED", Message: "unsupported dataset type"})
	}
	if req.DeclaredScope != "" && !validScope(req.DeclaredScope) {
		fields = append(fields, appErrors.FieldError{Field: "declared_scope", Code: "UNSUPPORTED", Message: "unsupported declared scope"})
	}
	if len(fields) > 0 {
		return fields
	}

	if result := validation.CheckCompatibility(req.IngestionMethod, req.DatasetType, req.DeclaredScope); !result.Allowed {
		fields = append(fields, appErrors.FieldError{Field: "dataset_type", Code: "INCOMPATIBLE", Message: result.Reason})
	}

	fields = append(fields, validation.CheckScopeFields(req.DeclaredScope, req.ScopeTargetID, req.QuarantineReason, req.ResolutionDueDate, now)...)

	if !validation.RationaleValid(req.Rationale) {
		fields = append(fields, appErrors.FieldError{Field: "rationale", Code: "INSUFFICIENT", Message: "rationale must be at least 20 characters of substantive text"})
	}
	if len(normalizeTags(req.PurposeTags)) == 0 {
		fields = append(fields, appErrors.FieldError{Field: "purpose_tags", Code: "REQUIRED", Message: "at least one purpose tag is required"})
	}
	if req.RetentionPolicy != "" && req.RetentionPolicy.Years() == 0 {
		fields = append(fields, appErrors.FieldError{Field: "retention_policy", Code: "UNSUPPORTED", Message: "unsupported retention policy"})
	}
	if req.RetentionPolicy == "" {
		fields = append(fields, appErrors.FieldError{Field: "retention_policy", Code: "REQUIRED", Message: "retention_policy is required"})
	}
	fields = append(fields, personalDataFields(req.ContainsPersonal, req.LegalBasis)...)
	fields = append(fields, quarantinePairFields(req.DeclaredScope, req.QuarantineReason, req.ResolutionDueDate)...)

	if len(req.Payload) > 0 && !json.Valid(req.Payload) {
		fields = append(fields, appErrors.FieldError{Field: "payload", Code: "MALFORMED", Message: "payload must be valid JSON"})
	}

	return fields
}

// validateDraftFields re-checks the mutable invariants after a patch.
func (s *DraftService) validateDraftFields(draft *models.Draft) []appErrors.FieldError {
	var fields []appErrors.FieldError

	if !validation.RationaleValid(draft.Rationale) {
		fields = append(fields, appErrors.FieldError{Field: "rationale", Code: "INSUFFICIENT", Message: "rationale must be at least 20 characters of substantive text"})
	}
	if len(draft.PurposeTags) == 0 {
		fields = append(fields, appErrors.FieldError{Field: "purpose_tags", Code: "REQUIRED", Message: "at least one purpose tag is required"})
	}
	if draft.RetentionPolicy.Years() == 0 {
		fields = append(fields, appErrors.FieldError{Field: "retention_policy", Code: "UNSUPPORTED", Message: "unsupported retention policy"})
	}
	fields = append(fields, personalDataFields(draft.ContainsPersonal, draft.LegalBasis)...)
	fields = append(fields, validation.CheckScopeFields(draft.DeclaredScope, draft.ScopeTargetID, draft.QuarantineReason, draft.ResolutionDueDate, s.clk.Now())...)
	fields = append(fields, quarantinePairFields(draft.DeclaredScope, draft.QuarantineReason, draft.ResolutionDueDate)...)

	if len(draft.Payload) > 0 && !json.Valid(draft.Payload) {
		fields = append(fields, appErrors.FieldError{Field: "payload", Code: "MALFORMED", Message: "payload must be valid JSON"})
	}

	return fields
}

func applyPatch(draft *models.Draft, req dto.UpdateDraftRequest) {
	if req.SourceSystem != nil {
		draft.SourceSystem = strings.TrimSpace(*req.SourceSystem)
	}
	if req.Rationale != nil {
		draft.Rationale = strings.TrimSpace(*req.Rationale)
	}
	if req.PurposeTags != nil {
		draft.PurposeTags = normalizeTags(req.PurposeTags)
	}
	if req.RetentionPolicy != nil {
		draft.RetentionPolicy = models.RetentionPolicy(strings.ToUpper(strings.TrimSpace(*req.RetentionPolicy)))
	}
	if req.ContainsPersonal != nil {
		draft.ContainsPersonal = *req.ContainsPersonal
	}
	if req.LegalBasis != nil {
		draft.LegalBasis = trimmedPtr(req.LegalBasis)
	}
	if req.QuarantineReason != nil {
		draft.QuarantineReason = trimmedPtr(req.QuarantineReason)
	}
	if req.ResolutionDueDate != nil {
		draft.ResolutionDueDate = req.ResolutionDueDate
	}
	if len(req.Payload) > 0 {
		draft.Payload = req.Payload
	}
	if req.ExternalReferenceID != nil {
		draft.ExternalReferenceID = trimmedPtr(req.ExternalReferenceID)
	}
	if req.SnapshotTimestamp != nil {
		draft.SnapshotTimestamp = req.SnapshotTimestamp
	}
}

func personalDataFields(containsPersonal bool, legalBasis *string) []appErrors.FieldError {
	hasBasis := legalBasis != nil && strings.TrimSpace(*legalBasis) != ""
	if containsPersonal && !hasBasis {
		return []appErrors.FieldError{{Field: "legal_basis", Code: "REQUIRED", Message: "legal_basis is required when contains_personal_data is set"}}
	}
	if !containsPersonal && hasBasis {
		return []appErrors.FieldError{{Field: "legal_basis", Code: "UNEXPECTED", Message: "legal_basis requires contains_personal_data"}}
	}
	return nil
}

// quarantinePairFields enforces that the quarantine fields travel together
// even outside UNKNOWN scope, where CheckScopeFields does not look at them.
func quarantinePairFields(scope models.DeclaredScope, reason *string, due *time.Time) []appErrors.FieldError {
	if scope == models.ScopeUnknown {
		return nil
	}
	hasReason := reason != nil && strings.TrimSpace(*reason) != ""
	if hasReason != (due != nil) {
		return []appErrors.FieldError{{Field: "quarantine_reason", Code: "PAIR_REQUIRED", Message: "quarantine_reason and resolution_due_date are required together"}}
	}
	return nil
}

func rejectionDetail(err *appErrors.Error) map[string]interface{} {
	detail := map[string]interface{}{"error_code": err.Code}
	if len(err.Fields) > 0 {
		detail["field_errors"] = err.Fields
	}
	if err.Detail != nil {
		detail["detail"] = err.Detail
	}
	return detail
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeTags(tags []string) models.StringSlice {
	seen := make(map[string]struct{}, len(tags))
	result := make(models.StringSlice, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.ToLower(strings.TrimSpace(tag))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

func validMethod(m models.IngestionMethod) bool {
	for _, method := range models.IngestionMethods {
		if method == m {
			return true
		}
	}
	return false
}

func validDataset(d models.DatasetType) bool {
	for _, dataset := range models.DatasetTypes {
		if dataset == d {
			return true
		}
	}
	return false
}

func validScope(s models.DeclaredScope) bool {
	for _, scope := range models.DeclaredScopes {
		if scope == s {
			return true
		}
	}
	return false
}
