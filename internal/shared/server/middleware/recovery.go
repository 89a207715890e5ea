package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"logistics-backend/internal/shared/server/respond"
	"logistics-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 envelope. A panic raised while a
// document body is already streaming can only abort the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      fmt.Sprint(rec),
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			}
			if c.Writer.Written() {
				fields["bytes_written"] = c.Writer.Size()
				telemetry.Error("panic.mid_stream", fields)
				c.Abort()
				return
			}
			telemetry.Error("panic", fields)
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", "")
		}()
		c.Next()
	}
}
