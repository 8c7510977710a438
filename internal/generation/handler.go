package generation

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobdocs-backend/internal/llm"
	"jobdocs-backend/internal/shared/server/respond"
)

// Generator is the part of Router used by the HTTP handler.
type Generator interface {
	Generate(ctx context.Context, req Request) Result
}

// Handler exposes single-shot generation.
type Handler struct {
	Generator Generator
}

// NewHandler constructs a Handler.
func NewHandler(generator Generator) *Handler {
	return &Handler{Generator: generator}
}

// RegisterRoutes attaches generation routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate", h.generate)
}

type generateRequest struct {
	Prompt       string `json:"prompt" binding:"required"`
	SystemPrompt string `json:"systemPrompt"`
	DocumentType string `json:"documentType"`
	UserID       string `json:"userId"`
	MaxTokens    int    `json:"maxTokens"`
}

type generateResponse struct {
	Result
	GenerationTimeMs int64 `json:"generationTimeMs"`
}

func (h *Handler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		respond.Error(c, http.StatusBadRequest, "bad_request", "prompt is required", nil)
		return
	}
	docType := strings.TrimSpace(req.DocumentType)
	if docType == "" {
		docType = "custom"
	}
	systemPrompt := req.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = llm.SystemPrompt(docType)
	}

	res := h.Generator.Generate(c.Request.Context(), Request{
		Prompt:       llm.OptimizePrompt(req.Prompt),
		SystemPrompt: systemPrompt,
		DocumentType: docType,
		UserID:       req.UserID,
		MaxTokens:    req.MaxTokens,
	})
	out := generateResponse{Result: res, GenerationTimeMs: res.GenerationTime.Milliseconds()}
	if !res.Success {
		respond.JSON(c, statusForKind(res.ErrorKind), out)
		return
	}
	respond.OK(c, out)
}

func statusForKind(kind llm.ErrorKind) int {
	switch kind {
	case llm.KindRateLimited:
		return http.StatusTooManyRequests
	case llm.KindTimeout:
		return http.StatusGatewayTimeout
	case llm.KindUnavailable, llm.KindNotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
