package correlation

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	headerKey  = "X-Correlation-ID"
	contextKey = "correlation_id"
)

// Middleware assigns a correlation ID to each incoming HTTP request. The ID
// is echoed on the response and stamped into every audit event written while
// handling the request, so responses and audit rows cross-reference.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		corrID := c.GetHeader(headerKey)
		if corrID == "" {
			corrID = generateID()
		}

		c.Set(contextKey, corrID)
		c.Writer.Header().Set(headerKey, corrID)

		c.Next()
	}
}

// Value returns the correlation ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func generateID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}

	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
