package research

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"jobdocs-backend/internal/applications"
	"jobdocs-backend/internal/shared/server/respond"
)

// Researcher is the part of Pipeline used by the HTTP handler.
type Researcher interface {
	Research(ctx context.Context, applicationID int64, companyName, jobTitle string) Record
	Get(ctx context.Context, applicationID int64) (Record, error)
}

// Handler exposes company research endpoints.
type Handler struct {
	Research     Researcher
	Applications applications.Repo
}

// NewHandler constructs a Handler.
func NewHandler(researcher Researcher, apps applications.Repo) *Handler {
	return &Handler{Research: researcher, Applications: apps}
}

// RegisterRoutes attaches research routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications/:id/research", h.run)
	rg.GET("/applications/:id/research", h.get)
}

type researchRequest struct {
	CompanyName string `json:"companyName"`
	JobTitle    string `json:"jobTitle"`
}

func (h *Handler) run(c *gin.Context) {
	appID, ok := applicationID(c)
	if !ok {
		return
	}
	var req researchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "bad_request", "invalid request body", nil)
			return
		}
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		app, err := h.Applications.Get(c.Request.Context(), appID)
		if err != nil {
			if errors.Is(err, applications.ErrNotFound) {
				respond.Error(c, http.StatusNotFound, "not_found", "application not found", nil)
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load application", nil)
			return
		}
		req.CompanyName = app.CompanyName
		if strings.TrimSpace(req.JobTitle) == "" {
			req.JobTitle = app.JobTitle
		}
	}

	rec := h.Research.Research(c.Request.Context(), appID, req.CompanyName, req.JobTitle)
	respond.OK(c, gin.H{
		"success": rec.Succeeded(),
		"data":    rec,
	})
}

func (h *Handler) get(c *gin.Context) {
	appID, ok := applicationID(c)
	if !ok {
		return
	}
	rec, err := h.Research.Get(c.Request.Context(), appID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "no research found for this application", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch research", nil)
		return
	}
	respond.OK(c, rec)
}

func applicationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "bad_request", "invalid application id", nil)
		return 0, false
	}
	return id, true
}
