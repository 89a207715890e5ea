package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"logistics-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log can name what was touched.
const (
	EntityIDKey = "entityId"
	CategoryKey = "documentCategory"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		entityID, _ := c.Get(EntityIDKey)
		category, _ := c.Get(CategoryKey)

		telemetry.Info("request.complete", map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"bytes":       c.Writer.Size(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"entity_id":   entityID,
			"category":    category,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}
