// Package respond writes the JSON envelopes every handler shares.
package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobdocs-backend/internal/shared/telemetry"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "requestId"

// ErrorBody is the payload under "error" in every failed response.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// RequestID returns the id set by the request id middleware, if any.
func RequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(RequestIDKey)
}

func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Error aborts the request with an error envelope. Server errors are logged at
// error level and client errors at warn.
func Error(c *gin.Context, status int, code, message string, details any) {
	reqID := RequestID(c)
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"request_id": reqID,
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.client_error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: reqID,
	}})
}
