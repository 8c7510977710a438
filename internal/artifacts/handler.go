package artifacts

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jobdocs-backend/internal/shared/server/respond"
)

// Handler serves stored artifact bodies as plain text downloads.
type Handler struct {
	Writer *Writer
}

func NewHandler(w *Writer) *Handler {
	return &Handler{Writer: w}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/applications/:id/artifacts/:type", h.download)
}

func (h *Handler) download(c *gin.Context) {
	appID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || appID <= 0 {
		respond.Error(c, http.StatusBadRequest, "bad_request", "invalid application id", nil)
		return
	}
	docType, ok := ParseDocumentType(c.Param("type"))
	if !ok {
		respond.Error(c, http.StatusBadRequest, "bad_request", "unknown document type", gin.H{"type": c.Param("type")})
		return
	}

	a, body, err := h.Writer.Body(c.Request.Context(), appID, docType)
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "artifact not found", nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load artifact", nil)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%d-%s.txt"`, appID, docType))
	c.Header("X-Artifact-Provider", a.Provider)
	c.Data(http.StatusOK, ContentType, body)
}
