package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/complyvault/evidence-api/internal/dto"
	"github.com/complyvault/evidence-api/internal/models"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
	"github.com/complyvault/evidence-api/pkg/middleware/correlation"
	"github.com/complyvault/evidence-api/pkg/response"
)

type evidenceService interface {
	Get(ctx context.Context, tenantID, evidenceID string) (*models.SealedEvidence, error)
	GetByDraft(ctx context.Context, tenantID, draftID string) (*models.SealedEvidence, error)
	Receipt(ctx context.Context, tenantID, evidenceID string) ([]byte, error)
}

type transitionService interface {
	Transition(ctx context.Context, tenantID, evidenceID string, req dto.TransitionRequest, actor, correlationID string) (*dto.TransitionResponse, error)
}

// EvidenceHandler exposes sealed evidence endpoints.
type EvidenceHandler struct {
	evidence    evidenceService
	transitions transitionService
}

// NewEvidenceHandler constructs handler.
func NewEvidenceHandler(evidence evidenceService, transitions transitionService) *EvidenceHandler {
	return &EvidenceHandler{evidence: evidence, transitions: transitions}
}

// Get godoc
// @Summary Get sealed evidence
// @Tags Evidence
// @Produce json
// @Param id path string true "Evidence ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /evidence/{id} [get]
func (h *EvidenceHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	evidence, err := h.evidence.Get(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evidence, nil)
}

// GetByDraft godoc
// @Summary Get the sealed evidence produced from a draft
// @Tags Evidence
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /drafts/{id}/evidence [get]
func (h *EvidenceHandler) GetByDraft(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	evidence, err := h.evidence.GetByDraft(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evidence, nil)
}

// Transition godoc
// @Summary Advance the evidence ledger state
// @Tags Evidence
// @Accept json
// @Produce json
// @Param id path string true "Evidence ID"
// @Param payload body dto.TransitionRequest true "Target state and reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /evidence/{id}/transition [post]
func (h *EvidenceHandler) Transition(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.transitions.Transition(c.Request.Context(), claims.TenantID, c.Param("id"), req, claims.ActorID, correlation.Value(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Receipt godoc
// @Summary Download the PDF seal receipt
// @Tags Evidence
// @Produce application/pdf
// @Param id path string true "Evidence ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /evidence/{id}/receipt [get]
func (h *EvidenceHandler) Receipt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	evidenceID := c.Param("id")
	pdf, err := h.evidence.Receipt(c.Request.Context(), claims.TenantID, evidenceID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=seal-receipt-%s.pdf", evidenceID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
