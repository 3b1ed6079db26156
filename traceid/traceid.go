// Package traceid generates and propagates the short correlation id that
// ties together a gateway request, its log lines, and the storage calls
// it makes on the slow path. It deliberately does not attempt full
// distributed tracing (spans, exporters, sampling) — the gateway's fast
// path only needs a stable identifier to grep by, not a trace graph.
package traceid

import (
	"encoding/hex"
	"net/http"
	"time"
)

// Header is the HTTP header carrying the trace id across the wire, both
// on inbound requests to the gateway and on outbound calls to storage.
const Header = "x-salience-trace-id"

// New derives a 12-character lowercase hex trace id from the current
// monotonic-backed wall clock, masked to 48 bits. It is not
// cryptographically random — two ids generated within the same
// nanosecond could theoretically collide — but at gateway request rates
// that is an acceptable trade for avoiding a dependency on crypto/rand
// on the hot path.
func New(now time.Time) string {
	n := uint64(now.UnixNano()) & 0xFFFFFFFFFFFF // 48 bits → 12 hex chars
	b := []byte{
		byte(n >> 40), byte(n >> 32), byte(n >> 24),
		byte(n >> 16), byte(n >> 8), byte(n),
	}
	return hex.EncodeToString(b)
}

// FromRequest extracts the trace id from an inbound request, generating
// a fresh one if the header is absent or empty.
func FromRequest(r *http.Request) string {
	if v := r.Header.Get(Header); v != "" {
		return v
	}
	return New(time.Now())
}
