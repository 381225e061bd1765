package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/complyvault/evidence-api/internal/dto"
	"github.com/complyvault/evidence-api/internal/models"
	"github.com/complyvault/evidence-api/pkg/clock"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

type evidenceTransitionStore interface {
	GetByID(ctx context.Context, tenantID, evidenceID string) (*models.SealedEvidence, error)
	AppendState(ctx context.Context, tenantID, evidenceID string, from, to models.LedgerState, history models.StateHistory) error
}

type evidenceInvalidator interface {
	Invalidate(ctx context.Context, tenantID, evidenceID string)
}

type transitionMetrics interface {
	ObserveTransition(from, to string)
	ObserveTransitionBlocked(from, to string)
}

// TransitionService advances sealed evidence through the ledger state table.
// Illegal requests are refused and recorded; nothing else about the record
// ever changes.
type TransitionService struct {
	evidence evidenceTransitionStore
	audit    auditLogger
	cache    evidenceInvalidator
	metrics  transitionMetrics
	clk      clock.Clock
	logger   *zap.Logger
	timeout  time.Duration
}

// TransitionServiceOption configures the service.
type TransitionServiceOption func(*TransitionService)

// WithTransitionStorageTimeout bounds repository calls.
func WithTransitionStorageTimeout(d time.Duration) TransitionServiceOption {
	return func(s *TransitionService) { s.timeout = d }
}

// WithTransitionCache wires cache invalidation on successful transitions.
func WithTransitionCache(cache evidenceInvalidator) TransitionServiceOption {
	return func(s *TransitionService) { s.cache = cache }
}

// WithTransitionMetrics wires transition counters.
func WithTransitionMetrics(m transitionMetrics) TransitionServiceOption {
	return func(s *TransitionService) { s.metrics = m }
}

// NewTransitionService constructs the service.
func NewTransitionService(evidence evidenceTransitionStore, audit auditLogger, clk clock.Clock, logger *zap.Logger, opts ...TransitionServiceOption) *TransitionService {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &TransitionService{
		evidence: evidence,
		audit:    audit,
		metrics:  noopTransitionMetrics{},
		clk:      clk,
		logger:   logger,
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Transition moves evidence to the requested state if the transition table
// allows it.
func (s *TransitionService) Transition(ctx context.Context, tenantID, evidenceID string, req dto.TransitionRequest, actor, correlationID string) (*dto.TransitionResponse, error) {
	toState := models.LedgerState(strings.ToUpper(strings.TrimSpace(string(req.ToState))))
	reason := strings.TrimSpace(req.Reason)
	if toState == "" || reason == "" {
		return nil, appErrors.WithFields(appErrors.ErrValidation,
			appErrors.FieldError{Field: "to_state", Code: "REQUIRED", Message: "to_state and reason are required"})
	}

	bctx, cancel := boundCtx(ctx, s.timeout)
	evidence, err := s.evidence.GetByID(bctx, tenantID, evidenceID)
	cancel()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.FromError(err)
	}

	if !models.TransitionAllowed(evidence.LedgerState, toState) {
		blockedErr := appErrors.WithDetail(appErrors.ErrTransitionBlocked, map[string]interface{}{
			"current_state":       evidence.LedgerState,
			"requested_state":     toState,
			"allowed_transitions": models.AllowedTransitions(evidence.LedgerState),
		})
		if auditErr := s.audit.Log(ctx, tenantID, correlationID, models.AuditStateTransitionBlocked, evidenceID, actor, rejectionDetail(blockedErr)); auditErr != nil {
			return nil, auditErr
		}
		s.metrics.ObserveTransitionBlocked(string(evidence.LedgerState), string(toState))
		return nil, blockedErr
	}

	history := append(evidence.StateHistory, models.StateChange{
		From:   evidence.LedgerState,
		To:     toState,
		Reason: reason,
		Actor:  actor,
		At:     s.clk.Now(),
	})

	bctx, cancel = boundCtx(ctx, s.timeout)
	err = s.evidence.AppendState(bctx, tenantID, evidenceID, evidence.LedgerState, toState, history)
	cancel()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A concurrent transition won; re-read would show the new state.
			return nil, appErrors.WithDetail(appErrors.ErrTransitionBlocked, map[string]interface{}{
				"requested_state": toState,
			})
		}
		return nil, appErrors.FromError(err)
	}

	if err := s.audit.Log(ctx, tenantID, correlationID, models.AuditStateTransitioned, evidenceID, actor, map[string]interface{}{
		"from":   evidence.LedgerState,
		"to":     toState,
		"reason": reason,
	}); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, tenantID, evidenceID)
	}
	s.metrics.ObserveTransition(string(evidence.LedgerState), string(toState))

	return &dto.TransitionResponse{
		EvidenceID:   evidenceID,
		LedgerState:  toState,
		StateHistory: history,
	}, nil
}

type noopTransitionMetrics struct{}

func (noopTransitionMetrics) ObserveTransition(string, string)        {}
func (noopTransitionMetrics) ObserveTransitionBlocked(string, string) {}
