package traceid_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/salience-gateway/gateway/traceid"
)

func TestNewProducesTwelveHexChars(t *testing.T) {
	id := traceid.New(time.Now())
	if len(id) != 12 {
		t.Fatalf("expected a 12-character trace id, got %q (%d chars)", id, len(id))
	}
	for _, c := range id {
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
		if !isHex {
			t.Fatalf("expected lowercase hex characters only, got %q", id)
		}
	}
}

func TestNewProducesDistinctIDsAcrossCalls(t *testing.T) {
	a := traceid.New(time.Now())
	b := traceid.New(time.Now().Add(time.Microsecond))
	if a == b {
		t.Fatal("expected distinct trace ids for distinct timestamps")
	}
}

func TestFromRequestUsesHeaderWhenPresent(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(traceid.Header, "abc123def456")

	got := traceid.FromRequest(r)
	if got != "abc123def456" {
		t.Errorf("expected the header value to be used, got %q", got)
	}
}

func TestFromRequestGeneratesWhenHeaderAbsent(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	got := traceid.FromRequest(r)
	if got == "" {
		t.Fatal("expected a generated trace id when the header is absent")
	}
	if len(got) != 12 {
		t.Errorf("expected a generated 12-character trace id, got %q", got)
	}
}
