package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/complyvault/evidence-api/pkg/errors"
	"github.com/complyvault/evidence-api/pkg/middleware/correlation"
)

// Pagination carries listing metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Envelope represents the common response contract. Every envelope carries
// the request's correlation ID so callers can cross-reference audit entries.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *Pagination            `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *Pagination, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	envelope := Envelope{Data: data, Pagination: pagination, Meta: withCorrelation(c, nil)}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = withCorrelation(c, meta[0])
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, Envelope{Error: appErr, Meta: withCorrelation(c, nil)})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func withCorrelation(c *gin.Context, meta map[string]interface{}) map[string]interface{} {
	corrID := correlation.Value(c)
	if corrID == "" {
		return meta
	}
	if meta == nil {
		meta = make(map[string]interface{}, 1)
	}
	meta["correlation_id"] = corrID
	return meta
}
