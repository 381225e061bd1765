package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/complyvault/evidence-api/internal/dto"
	"github.com/complyvault/evidence-api/internal/models"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
	"github.com/complyvault/evidence-api/pkg/middleware/correlation"
	"github.com/complyvault/evidence-api/pkg/response"
)

const maxDraftBodyBytes = 1 << 20

type draftService interface {
	CreateDraft(ctx context.Context, tenantID string, req dto.CreateDraftRequest, actor, correlationID string) (*models.Draft, error)
	GetDraft(ctx context.Context, tenantID, draftID string) (*models.Draft, error)
	UpdateDraft(ctx context.Context, tenantID, draftID string, rawBody []byte, req dto.UpdateDraftRequest, actor, correlationID string) (*models.Draft, error)
	ForSeal(ctx context.Context, tenantID, draftID string) (*dto.ForSealResponse, error)
}

type sealService interface {
	Seal(ctx context.Context, tenantID, draftID, actor, correlationID string) (*dto.SealResponse, error)
}

// DraftHandler exposes the draft lifecycle endpoints.
type DraftHandler struct {
	drafts draftService
	seals  sealService
}

// NewDraftHandler constructs handler.
func NewDraftHandler(drafts draftService, seals sealService) *DraftHandler {
	return &DraftHandler{drafts: drafts, seals: seals}
}

// Create godoc
// @Summary Create an evidence draft
// @Tags Drafts
// @Accept json
// @Produce json
// @Param payload body dto.CreateDraftRequest true "Draft declaration"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /drafts [post]
func (h *DraftHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	var req dto.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	draft, err := h.drafts.CreateDraft(c.Request.Context(), claims.TenantID, req, claims.ActorID, correlation.Value(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, draft)
}

// Get godoc
// @Summary Get a draft
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /drafts/{id} [get]
func (h *DraftHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	draft, err := h.drafts.GetDraft(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Update godoc
// @Summary Patch mutable draft fields
// @Tags Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param payload body dto.UpdateDraftRequest true "Draft patch"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /drafts/{id} [patch]
func (h *DraftHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDraftBodyBytes))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	var req dto.UpdateDraftRequest
	if err := json.Unmarshal(body, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	draft, err := h.drafts.UpdateDraft(c.Request.Context(), claims.TenantID, c.Param("id"), body, req, claims.ActorID, correlation.Value(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// ForSeal godoc
// @Summary Preview seal readiness for a draft
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /drafts/{id}/for-seal [post]
func (h *DraftHandler) ForSeal(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	preview, err := h.drafts.ForSeal(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Seal godoc
// @Summary Seal a draft into immutable evidence
// @Tags Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /drafts/{id}/seal [post]
func (h *DraftHandler) Seal(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	result, err := h.seals.Seal(c.Request.Context(), claims.TenantID, c.Param("id"), claims.ActorID, correlation.Value(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
