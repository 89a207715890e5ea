package respond

import (
	"github.com/gin-gonic/gin"

	"logistics-backend/internal/shared/telemetry"
)

// ErrorResponse is the envelope returned by every failing API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error sends a standardized error response. detail is the underlying cause
// shown to the caller; it may be empty.
func Error(c *gin.Context, status int, code, message, detail string) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if detail != "" {
		fields["error"] = detail
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Success: false,
		Message: message,
		Error:   detail,
		Code:    code,
	})
}
