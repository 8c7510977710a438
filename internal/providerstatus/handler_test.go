package providerstatus

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Tracker) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tracker, _ := newTestTracker(t, "10")
	r := gin.New()
	NewHandler(tracker).RegisterRoutes(r.Group("/api/v1"))
	return r, tracker
}

func TestHandlerToggle(t *testing.T) {
	r, tracker := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/providers/groq/toggle", strings.NewReader(`{"active":false}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["active"] != false {
		t.Fatalf("expected active=false, got %v", body["active"])
	}
	e := mustEligible(t, tracker, "groq")
	if e.Eligible {
		t.Fatalf("expected provider disabled after toggle")
	}
}

func TestHandlerToggleValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{name: "missing active", path: "/api/v1/providers/groq/toggle", body: `{}`, want: http.StatusBadRequest},
		{name: "unknown provider", path: "/api/v1/providers/nope/toggle", body: `{"active":true}`, want: http.StatusNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)
			if resp.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.Code)
			}
		})
	}
}

func TestHandlerList(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Providers []View `json:"providers"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Providers) != 2 || body.Providers[0].ProviderID != "groq" {
		t.Fatalf("unexpected providers: %+v", body.Providers)
	}
}
