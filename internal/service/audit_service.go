package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/complyvault/evidence-api/internal/models"
	"github.com/complyvault/evidence-api/pkg/clock"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

type auditStore interface {
	Append(ctx context.Context, event *models.AuditEvent) error
	AppendTx(ctx context.Context, tx *sqlx.Tx, event *models.AuditEvent) error
	ListBySubject(ctx context.Context, tenantID, subjectID string, limit, offset int) ([]models.AuditEvent, error)
}

// AuditService writes the immutable trail. A failed audit write fails the
// surrounding operation: an unaudited mutation in this domain is worse than a
// rejected one, so nothing here is best-effort.
type AuditService struct {
	repo   auditStore
	clk    clock.Clock
	ids    clock.IDProvider
	logger *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(repo auditStore, clk clock.Clock, ids clock.IDProvider, logger *zap.Logger) *AuditService {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if ids == nil {
		ids = clock.UUIDProvider{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, clk: clk, ids: ids, logger: logger}
}

// Log appends one audit event. The returned error must be propagated by the
// caller; swallowing it would let mutations pass unaudited.
func (s *AuditService) Log(ctx context.Context, tenantID, correlationID, eventType, subjectID, actor string, detail map[string]interface{}) error {
	event, err := s.build(tenantID, correlationID, eventType, subjectID, actor, detail)
	if err != nil {
		return err
	}
	if err := s.repo.Append(ctx, event); err != nil {
		s.logger.Error("audit append failed", zap.String("event_type", eventType), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write audit trail")
	}
	return nil
}

// LogTx appends one audit event inside an existing transaction.
func (s *AuditService) LogTx(ctx context.Context, tx *sqlx.Tx, tenantID, correlationID, eventType, subjectID, actor string, detail map[string]interface{}) error {
	event, err := s.build(tenantID, correlationID, eventType, subjectID, actor, detail)
	if err != nil {
		return err
	}
	if err := s.repo.AppendTx(ctx, tx, event); err != nil {
		s.logger.Error("audit append failed", zap.String("event_type", eventType), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write audit trail")
	}
	return nil
}

// ListBySubject returns the trail for one draft or evidence record.
func (s *AuditService) ListBySubject(ctx context.Context, tenantID, subjectID string, limit, offset int) ([]models.AuditEvent, error) {
	events, err := s.repo.ListBySubject(ctx, tenantID, subjectID, limit, offset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit events")
	}
	return events, nil
}

func (s *AuditService) build(tenantID, correlationID, eventType, subjectID, actor string, detail map[string]interface{}) (*models.AuditEvent, error) {
	var raw []byte
	if detail != nil {
		encoded, err := json.Marshal(detail)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode audit detail")
		}
		raw = encoded
	}
	return &models.AuditEvent{
		ID:            s.ids.NewID(),
		TenantID:      tenantID,
		CorrelationID: correlationID,
		EventType:     eventType,
		SubjectID:     subjectID,
		Actor:         actor,
		Detail:        raw,
		CreatedAt:     s.clk.Now(),
	}, nil
}

func boundCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
