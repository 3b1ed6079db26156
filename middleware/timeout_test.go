package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/salience-gateway/gateway/middleware"
)

func TestTimeoutAllowsFastHandlerThrough(t *testing.T) {
	h := middleware.Timeout(zerolog.New(io.Discard), 100*time.Millisecond)(passthroughHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	if rw.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected fast handler to complete normally, got %d", rw.Result().StatusCode)
	}
}

func TestTimeoutReturnsGatewayTimeoutOnSlowHandler(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	h := middleware.Timeout(zerolog.New(io.Discard), 20*time.Millisecond)(slow)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	if rw.Result().StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 on timeout, got %d", rw.Result().StatusCode)
	}
}

func TestTimeoutZeroDurationDisablesEnforcement(t *testing.T) {
	h := middleware.Timeout(zerolog.New(io.Discard), 0)(passthroughHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	if rw.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected a zero duration to disable timeout enforcement, got %d", rw.Result().StatusCode)
	}
}
