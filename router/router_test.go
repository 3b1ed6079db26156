package router_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/salience-gateway/gateway/caching"
	"github.com/salience-gateway/gateway/config"
	"github.com/salience-gateway/gateway/router"
	"github.com/salience-gateway/gateway/scorer"
	"github.com/salience-gateway/gateway/service"
	"github.com/salience-gateway/gateway/storage"
)

func testSetup() http.Handler {
	cfg := &config.Config{
		MaxBodyBytes:      1 << 20,
		DefaultTimeout:    2 * time.Second,
		RateLimitEnabled:  false,
		AdminServiceToken: "test-token",
	}
	logger := zerolog.New(io.Discard).With().Timestamp().Logger()
	cache := caching.New(10, 10, 0, 0.7)
	backend := &storage.MockBackend{Embedding: []float64{1, 0, 0}}
	svc := service.New(cache, backend, service.Config{Scorer: scorer.DefaultConfig()}, nil, nil, logger)
	poller := storage.NewHealthPoller(backend, logger, time.Minute)

	return router.New(router.Deps{
		Config:  cfg,
		Logger:  logger,
		Service: svc,
		Poller:  poller,
	})
}

func TestHealthEndpoints(t *testing.T) {
	r := testSetup()

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"healthz", "/healthz", http.StatusOK},
		// the poller has never run a probe yet, so it reports unhealthy
		{"healthz_details", "/healthz/details", http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			rw := httptest.NewRecorder()
			r.ServeHTTP(rw, req)
			if rw.Result().StatusCode != tc.status {
				t.Fatalf("expected %d for %s, got %d", tc.status, tc.path, rw.Result().StatusCode)
			}
		})
	}
}

func TestAdminRouteRequiresToken(t *testing.T) {
	r := testSetup()

	req := httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated admin route, got %d", rw.Result().StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rw = httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with valid admin token, got %d", rw.Result().StatusCode)
	}
}

func TestEvaluateSalienceHappyPath(t *testing.T) {
	r := testSetup()

	req := httptest.NewRequest(http.MethodPost, "/v1/salience/evaluate", strings.NewReader(`{"event_text":"a quiet afternoon"}`))
	req.Header.Set("Content-Type", "application/json")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	if rw.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rw.Result().StatusCode, rw.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	r := testSetup()

	req := httptest.NewRequest(http.MethodOptions, "/v1/salience/evaluate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	if rw.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("expected CORS Allow-Origin header on preflight response")
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := testSetup()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	headers := []string{
		"X-Content-Type-Options",
		"X-Frame-Options",
		"Strict-Transport-Security",
	}
	for _, h := range headers {
		if rw.Header().Get(h) == "" {
			t.Fatalf("expected security header %s to be set", h)
		}
	}
}
