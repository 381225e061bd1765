package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/complyvault/evidence-api/internal/service"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
	"github.com/complyvault/evidence-api/pkg/middleware/correlation"
	"github.com/complyvault/evidence-api/pkg/response"
)

// AttachmentHandler exposes draft attachment endpoints.
type AttachmentHandler struct {
	attachments *service.AttachmentService
}

// NewAttachmentHandler constructs handler.
func NewAttachmentHandler(attachments *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

// Upload godoc
// @Summary Upload an attachment onto a draft
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Draft ID"
// @Param file formData file true "Attachment file"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /drafts/{id}/attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file form field is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.FromError(err))
		return
	}
	defer file.Close() //nolint:errcheck

	attachment, err := h.attachments.Upload(c.Request.Context(), claims.TenantID, c.Param("id"),
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), fileHeader.Size, file,
		claims.ActorID, correlation.Value(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attachment)
}

// List godoc
// @Summary List draft attachments
// @Tags Attachments
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Router /drafts/{id}/attachments [get]
func (h *AttachmentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	attachments, err := h.attachments.List(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attachments, nil)
}

// DownloadURL godoc
// @Summary Issue a signed download link for an attachment
// @Tags Attachments
// @Produce json
// @Param id path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attachments/{id}/download-url [post]
func (h *AttachmentHandler) DownloadURL(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	url, err := h.attachments.DownloadURL(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, url, nil)
}

// Download godoc
// @Summary Download an attachment via a signed token
// @Tags Attachments
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /attachments/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "token query parameter is required"))
		return
	}

	attachment, file, err := h.attachments.OpenByToken(c.Request.Context(), claims.TenantID, token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))
	c.DataFromReader(http.StatusOK, attachment.SizeBytes, attachment.ContentType, file, nil)
}
