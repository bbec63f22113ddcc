package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tariqnasser/airwave-backend/api/controllers"
	"github.com/tariqnasser/airwave-backend/pkg/config"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
)

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test", Port: "0"}}
}

func TestCMSRouterHealth(t *testing.T) {
	router := NewCMSRouter(CMSRouterParams{
		Config:    testConfig(),
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Readiness: map[string]controllers.Pinger{"db": okPinger{}},
	})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id header missing")
	}

	req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from ready, got %d", w.Code)
	}
}

func TestDiscoveryRouterUnknownRoute(t *testing.T) {
	router := NewDiscoveryRouter(DiscoveryRouterParams{
		Config: testConfig(),
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
