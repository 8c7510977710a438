package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobdocs-backend/internal/shared/config"
	"jobdocs-backend/internal/shared/metrics"
	"jobdocs-backend/internal/shared/server/middleware"
	"jobdocs-backend/internal/shared/server/respond"
)

const generateGroup = "GENERATE"

// Routes is implemented by every feature handler.
type Routes interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the config and the feature handlers to mount.
type RouterDeps struct {
	Config   config.Config
	Handlers []Routes
	// Ready reports dependency health for /health. Nil means always ready.
	Ready func() error
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: rateLimitGroup,
			Rules: map[string]middleware.RateLimitRule{
				generateGroup: {
					Rate:  deps.Config.RateLimit.GenerateRate,
					Burst: deps.Config.RateLimit.GenerateBurst,
				},
			},
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "unavailable", err.Error(), nil)
				return
			}
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	return r
}

// rateLimitGroup puts every POST that spends provider tokens in one bucket.
func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return ""
	}
	path := c.Request.URL.Path
	switch {
	case strings.HasSuffix(path, "/generate"),
		strings.HasSuffix(path, "/regenerate"),
		strings.HasSuffix(path, "/research"):
		return generateGroup
	default:
		return ""
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
