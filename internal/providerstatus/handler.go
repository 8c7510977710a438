package providerstatus

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobdocs-backend/internal/shared/server/respond"
)

// Handler exposes provider status endpoints.
type Handler struct {
	Tracker *Tracker
}

// NewHandler constructs a Handler.
func NewHandler(tracker *Tracker) *Handler {
	return &Handler{Tracker: tracker}
}

// RegisterRoutes attaches provider routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/providers", h.list)
	rg.GET("/providers/:id", h.get)
	rg.POST("/providers/:id/toggle", h.toggle)
}

type toggleRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) list(c *gin.Context) {
	views, err := h.Tracker.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list providers", nil)
		return
	}
	respond.OK(c, gin.H{"providers": views})
}

func (h *Handler) get(c *gin.Context) {
	view, err := h.Tracker.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, view)
}

func (h *Handler) toggle(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "bad_request", "active is required", nil)
		return
	}
	st, err := h.Tracker.Toggle(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, View{Status: st, SuccessRate: st.SuccessRate(), MonthlyLimit: h.Tracker.Limits[st.ProviderID]})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownProvider), errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "provider not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "provider status unavailable", nil)
	}
}
