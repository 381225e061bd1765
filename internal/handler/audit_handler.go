package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/complyvault/evidence-api/internal/models"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
	"github.com/complyvault/evidence-api/pkg/response"
)

type auditQueryService interface {
	ListBySubject(ctx context.Context, tenantID, subjectID string, limit, offset int) ([]models.AuditEvent, error)
}

// AuditHandler exposes the audit trail query endpoint.
type AuditHandler struct {
	audit auditQueryService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(audit auditQueryService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary List audit events for a subject
// @Tags Audit
// @Produce json
// @Param subjectId query string true "Draft or evidence ID"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit-events [get]
func (h *AuditHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	subjectID := c.Query("subjectId")
	if subjectID == "" {
		response.Error(c, appErrors.WithFields(appErrors.ErrValidation,
			appErrors.FieldError{Field: "subjectId", Code: "REQUIRED", Message: "subjectId is required"}))
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	if pageSize < 1 {
		pageSize = 50
	}

	events, err := h.audit.ListBySubject(c.Request.Context(), claims.TenantID, subjectID, pageSize, (page-1)*pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, &response.Pagination{Page: page, PageSize: pageSize, TotalCount: len(events)})
}
