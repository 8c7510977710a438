package middleware

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"jobdocs-backend/internal/shared/server/respond"
	"jobdocs-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 error envelope and a structured
// log line carrying the stack.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		telemetry.Error("http.panic", map[string]any{
			"request_id": respond.RequestID(c),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"error":      fmt.Sprint(rec),
			"stack":      string(debug.Stack()),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
	})
}
