package usage

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jobdocs-backend/internal/shared/server/respond"
)

// Handler exposes usage ledger endpoints.
type Handler struct {
	Ledger *Ledger
}

// NewHandler constructs a Handler.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{Ledger: ledger}
}

// RegisterRoutes attaches usage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage", h.summary)
	rg.GET("/usage/records", h.recent)
}

func (h *Handler) summary(c *gin.Context) {
	summary, err := h.Ledger.MonthlySummary(c.Request.Context(), c.Query("month"))
	if err != nil {
		if errors.Is(err, ErrInvalidMonth) {
			respond.Error(c, http.StatusBadRequest, "bad_request", "month must be YYYY-MM", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch usage", nil)
		return
	}
	respond.OK(c, summary)
}

func (h *Handler) recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := h.Ledger.Recent(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch usage records", nil)
		return
	}
	if records == nil {
		records = []Record{}
	}
	respond.OK(c, gin.H{"records": records})
}
