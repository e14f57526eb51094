package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apphttp "workshop_portal_backend/internal/http"
	"workshop_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type routerConfig struct{}

func (routerConfig) GetHTTPAddr() string      { return ":0" }
func (routerConfig) GetCORSAllowAll() bool    { return true }
func (routerConfig) GetCORSOrigins() []string { return nil }
func (routerConfig) GetCronAuthSecret() string { return "" }

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config: routerConfig{},
		Logger: logger.New("development"),
	})
}

func TestHealthz(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCORSPreflightAllowsPut(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/jobs/agent/settings", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	allowed := rec.Header().Get("Access-Control-Allow-Methods")
	if !containsMethod(allowed, http.MethodPut) {
		t.Fatalf("expected PUT in allowed methods, got %q", allowed)
	}
}

func containsMethod(header, method string) bool {
	for _, m := range strings.Split(header, ",") {
		if strings.TrimSpace(m) == method {
			return true
		}
	}
	return false
}
