package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobdocs-backend/internal/shared/config"
)

func memoryConfig() config.Config {
	return config.Config{
		Env:             "dev",
		ObjectStoreType: "none",
		Routing:         config.Routing{Primary: config.ProviderGroq, Fallback: config.ProviderOpenRouter},
		Providers:       config.DefaultProviders(),
	}
}

func TestBuildInMemory(t *testing.T) {
	app, err := Build(memoryConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if app.DB != nil || app.Store != nil || app.Queue != nil {
		t.Fatalf("expected memory-only app, got db=%v store=%v queue=%v", app.DB, app.Store, app.Queue)
	}
	if app.Batch == nil || app.Generator == nil || app.Research == nil || app.Tracker == nil {
		t.Fatalf("expected services to be wired")
	}

	views, err := app.Tracker.List(t.Context())
	if err != nil {
		t.Fatalf("List providers: %v", err)
	}
	if len(views) != len(app.Config.Providers) {
		t.Fatalf("expected a status row per provider, got %d", len(views))
	}
}

func TestBuildRoutes(t *testing.T) {
	app, err := Build(memoryConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{method: http.MethodGet, path: "/api/v1/health", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/v1/metrics", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/v1/providers", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/v1/usage", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/v1/applications/7/artifacts", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/v1/applications/7/artifacts/resume", want: http.StatusNotFound},
		{method: http.MethodGet, path: "/api/v1/applications/7/jobs/latest", want: http.StatusNotFound},
		{method: http.MethodPost, path: "/api/v1/applications/7/generate", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		w := httptest.NewRecorder()
		app.Router.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Fatalf("%s %s: expected %d, got %d: %s", tt.method, tt.path, tt.want, w.Code, w.Body.String())
		}
	}
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := memoryConfig()
	cfg.Env = "production"
	_, err := Build(cfg)
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestBuildS3RequiresBucket(t *testing.T) {
	cfg := memoryConfig()
	cfg.ObjectStoreType = "s3"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error without S3_BUCKET")
	}
}
