package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/complyvault/evidence-api/internal/dto"
	"github.com/complyvault/evidence-api/internal/models"
	"github.com/complyvault/evidence-api/pkg/clock"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

type attachmentStore interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	GetByID(ctx context.Context, tenantID, attachmentID string) (*models.Attachment, error)
	ListByDraft(ctx context.Context, tenantID, draftID string) ([]models.Attachment, error)
	SetContentHash(ctx context.Context, tenantID, attachmentID, hash string) error
}

type draftReader interface {
	GetByID(ctx context.Context, tenantID, draftID string) (*models.Draft, error)
}

type blobStorage interface {
	SaveStream(ref string, r io.Reader) (int64, error)
	Open(ref string) (*os.File, error)
	Delete(ref string) error
}

type urlSigner interface {
	Generate(attachmentID, storageRef string) (string, time.Time, error)
	Parse(token string) (attachmentID, storageRef string, expiresAt time.Time, err error)
}

// AttachmentService handles attachment uploads for drafts. The content hash
// is computed server-side while the upload streams to disk; a hash declared
// by the caller is ignored.
type AttachmentService struct {
	repo     attachmentStore
	drafts   draftReader
	storage  blobStorage
	signer   urlSigner
	audit    auditLogger
	clk      clock.Clock
	ids      clock.IDProvider
	logger   *zap.Logger
	timeout  time.Duration
	maxBytes int64
	allowed  map[string]struct{}
}

// AttachmentServiceOption configures the service.
type AttachmentServiceOption func(*AttachmentService)

// WithAttachmentStorageTimeout bounds repository calls.
func WithAttachmentStorageTimeout(d time.Duration) AttachmentServiceOption {
	return func(s *AttachmentService) { s.timeout = d }
}

// WithMaxFileSize caps the accepted upload size in bytes.
func WithMaxFileSize(n int64) AttachmentServiceOption {
	return func(s *AttachmentService) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithAllowedMIMEs restricts the accepted content types. Empty means any.
func WithAllowedMIMEs(mimes []string) AttachmentServiceOption {
	return func(s *AttachmentService) {
		if len(mimes) == 0 {
			s.allowed = nil
			return
		}
		s.allowed = make(map[string]struct{}, len(mimes))
		for _, m := range mimes {
			s.allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
		}
	}
}

// NewAttachmentService constructs the service.
func NewAttachmentService(repo attachmentStore, drafts draftReader, storage blobStorage, signer urlSigner, audit auditLogger, clk clock.Clock, ids clock.IDProvider, logger *zap.Logger, opts ...AttachmentServiceOption) *AttachmentService {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if ids == nil {
		ids = clock.UUIDProvider{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttachmentService{
		repo:     repo,
		drafts:   drafts,
		storage:  storage,
		signer:   signer,
		audit:    audit,
		clk:      clk,
		ids:      ids,
		logger:   logger,
		timeout:  5 * time.Second,
		maxBytes: 50 << 20,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Upload streams one file onto a draft. The metadata row is written before
// the blob, then the hash is attached once the stream completes; an
// attachment without a content hash is an aborted upload and blocks sealing.
func (s *AttachmentService) Upload(ctx context.Context, tenantID, draftID, filename, contentType string, size int64, body io.Reader, actor, correlationID string) (*models.Attachment, error) {
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
		return nil, s.rejectUpload(ctx, tenantID, draftID, actor, correlationID, appErrors.ErrSealedImmutable)
	}

	if fields := s.validateFile(filename, contentType, size); len(fields) > 0 {
		return nil, s.rejectUpload(ctx, tenantID, draftID, actor, correlationID, appErrors.WithFields(appErrors.ErrValidation, fields...))
	}

	attachment := &models.Attachment{
		ID:          s.ids.NewID(),
		TenantID:    tenantID,
		DraftID:     draftID,
		Filename:    path.Base(strings.TrimSpace(filename)),
		SizeBytes:   size,
		ContentType: strings.ToLower(strings.TrimSpace(contentType)),
		StorageRef:  fmt.Sprintf("%s/%s/%s", tenantID, draftID, s.ids.NewID()),
		CreatedAt:   s.clk.Now(),
	}

	bctx, cancel = boundCtx(ctx, s.timeout)
	err = s.repo.Create(bctx, attachment)
	cancel()
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	hasher := sha256.New()
	limited := io.LimitReader(body, s.maxBytes+1)
	written, err := s.storage.SaveStream(attachment.StorageRef, io.TeeReader(limited, hasher))
	if err != nil {
		s.cleanupBlob(attachment.StorageRef)
		return nil, appErrors.FromError(err)
	}
	// The hash must fingerprint the complete file. A stream longer than the
	// limit or shorter/longer than the declared size would hash partial or
	// undeclared content, so the blob is discarded instead.
	if written > s.maxBytes {
		s.cleanupBlob(attachment.StorageRef)
		return nil, s.rejectUpload(ctx, tenantID, draftID, actor, correlationID,
			appErrors.WithFields(appErrors.ErrValidation, appErrors.FieldError{
				Field: "file", Code: "TOO_LARGE", Message: fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes),
			}))
	}
	if written != size {
		s.cleanupBlob(attachment.StorageRef)
		return nil, s.rejectUpload(ctx, tenantID, draftID, actor, correlationID,
			appErrors.WithFields(appErrors.ErrValidation, appErrors.FieldError{
				Field: "file", Code: "SIZE_MISMATCH", Message: fmt.Sprintf("declared %d bytes but received %d", size, written),
			}))
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	bctx, cancel = boundCtx(ctx, s.timeout)
	err = s.repo.SetContentHash(bctx, tenantID, attachment.ID, hash)
	cancel()
	if err != nil {
		s.cleanupBlob(attachment.StorageRef)
		return nil, appErrors.FromError(err)
	}
	attachment.ContentHash = &hash

	if err := s.audit.Log(ctx, tenantID, correlationID, models.AuditAttachmentAdded, attachment.ID, actor, map[string]interface{}{
		"draft_id":     draftID,
		"filename":     attachment.Filename,
		"size_bytes":   attachment.SizeBytes,
		"content_hash": hash,
	}); err != nil {
		return nil, err
	}
	return attachment, nil
}

// List returns the attachments of a draft, oldest first.
func (s *AttachmentService) List(ctx context.Context, tenantID, draftID string) ([]models.Attachment, error) {
	if _, err := s.drafts.GetByID(ctx, tenantID, draftID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}
	bctx, cancel := boundCtx(ctx, s.timeout)
	defer cancel()
	attachments, err := s.repo.ListByDraft(bctx, tenantID, draftID)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return attachments, nil
}

// DownloadURL issues a short-lived signed token for one attachment.
func (s *AttachmentService) DownloadURL(ctx context.Context, tenantID, attachmentID string) (*dto.DownloadURLResponse, error) {
	bctx, cancel := boundCtx(ctx, s.timeout)
	attachment, err := s.repo.GetByID(bctx, tenantID, attachmentID)
	cancel()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}

	token, expiresAt, err := s.signer.Generate(attachment.ID, attachment.StorageRef)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return &dto.DownloadURLResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// OpenByToken validates a signed token and opens the referenced blob. The
// attachment row is re-read inside the tenant so a token never crosses
// tenants.
func (s *AttachmentService) OpenByToken(ctx context.Context, tenantID, token string) (*models.Attachment, *os.File, error) {
	attachmentID, storageRef, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.ErrUnauthorized
	}

	bctx, cancel := boundCtx(ctx, s.timeout)
	attachment, err := s.repo.GetByID(bctx, tenantID, attachmentID)
	cancel()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrNotFound
		}
		return nil, nil, appErrors.FromError(err)
	}
	if attachment.StorageRef != storageRef {
		return nil, nil, appErrors.ErrUnauthorized
	}

	file, err := s.storage.Open(attachment.StorageRef)
	if err != nil {
		return nil, nil, appErrors.FromError(err)
	}
	return attachment, file, nil
}

func (s *AttachmentService) validateFile(filename, contentType string, size int64) []appErrors.FieldError {
	var fields []appErrors.FieldError
	if strings.TrimSpace(filename) == "" {
		fields = append(fields, appErrors.FieldError{Field: "filename", Code: "REQUIRED", Message: "filename is required"})
	}
	if size <= 0 {
		fields = append(fields, appErrors.FieldError{Field: "file", Code: "EMPTY", Message: "file is empty"})
	}
	if size > s.maxBytes {
		fields = append(fields, appErrors.FieldError{Field: "file", Code: "TOO_LARGE", Message: fmt.Sprintf("file exceeds the %d byte limit", s.maxBytes)})
	}
	if s.allowed != nil {
		if _, ok := s.allowed[strings.ToLower(strings.TrimSpace(contentType))]; !ok {
			fields = append(fields, appErrors.FieldError{Field: "content_type", Code: "UNSUPPORTED", Message: "unsupported content type"})
		}
	}
	return fields
}

func (s *AttachmentService) rejectUpload(ctx context.Context, tenantID, draftID, actor, correlationID string, cause *appErrors.Error) error {
	if err := s.audit.Log(ctx, tenantID, correlationID, models.AuditAttachmentRejected, draftID, actor, rejectionDetail(cause)); err != nil {
		return err
	}
	return cause
}

func (s *AttachmentService) cleanupBlob(ref string) {
	if err := s.storage.Delete(ref); err != nil {
		s.logger.Warn("failed to remove orphaned attachment blob", zap.String("storage_ref", ref), zap.Error(err))
	}
}
