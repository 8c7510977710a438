package batch

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jobdocs-backend/internal/applications"
	"jobdocs-backend/internal/jobs"
	"jobdocs-backend/internal/queue"
	"jobdocs-backend/internal/shared/server/respond"
	"jobdocs-backend/internal/shared/telemetry"
)

// Handler exposes batch generation endpoints.
type Handler struct {
	Service *Service
	// Queue is optional; without it batches run inline in the request.
	Queue queue.Client
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, q queue.Client) *Handler {
	return &Handler{Service: svc, Queue: q}
}

// RegisterRoutes attaches batch routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications/:id/generate", h.generateAll)
	rg.POST("/applications/:id/documents/:type/regenerate", h.regenerate)
	rg.GET("/applications/:id/jobs/latest", h.latestJob)
	rg.GET("/applications/:id/artifacts", h.listArtifacts)
}

func (h *Handler) generateAll(c *gin.Context) {
	appID, ok := applicationID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if h.Queue != nil {
		if _, err := h.Service.Applications.Get(ctx, appID); err != nil {
			writeError(c, err)
			return
		}
		requestID := respond.RequestID(c)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		if err := h.Queue.Send(ctx, queue.NewMessage(appID, requestID, time.Now())); err != nil {
			telemetry.Error("batch.enqueue_failed", map[string]any{
				"application_id": appID,
				"request_id":     requestID,
				"error":          err.Error(),
			})
			respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "failed to enqueue generation", nil)
			return
		}
		telemetry.Info("batch.enqueued", map[string]any{
			"application_id": appID,
			"request_id":     requestID,
		})
		respond.JSON(c, http.StatusAccepted, gin.H{"queued": true, "requestId": requestID})
		return
	}

	summary, err := h.Service.GenerateAll(ctx, appID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, summary)
}

func (h *Handler) regenerate(c *gin.Context) {
	appID, ok := applicationID(c)
	if !ok {
		return
	}
	out, err := h.Service.Regenerate(c.Request.Context(), appID, c.Param("type"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !out.Success {
		respond.JSON(c, http.StatusBadGateway, out)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) latestJob(c *gin.Context) {
	appID, ok := applicationID(c)
	if !ok {
		return
	}
	job, err := h.Service.LatestJob(c.Request.Context(), appID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, job)
}

func (h *Handler) listArtifacts(c *gin.Context) {
	appID, ok := applicationID(c)
	if !ok {
		return
	}
	list, err := h.Service.ListArtifacts(c.Request.Context(), appID)
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		respond.OK(c, gin.H{"artifacts": []any{}})
		return
	}
	respond.OK(c, gin.H{"artifacts": list})
}

func applicationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "bad_request", "invalid application id", nil)
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrApplicationNotFound), errors.Is(err, applications.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "application not found", nil)
	case errors.Is(err, jobs.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "no generation job found", nil)
	case errors.Is(err, ErrUnknownDocumentType):
		respond.Error(c, http.StatusBadRequest, "bad_request", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "generation failed", nil)
	}
}
