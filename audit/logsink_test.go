package audit_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/salience-gateway/gateway/audit"
)

func TestLogSinkWritesOneLinePerEntryAndNeverErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	sink := audit.NewLogSink(logger)

	entries := []audit.Entry{
		{EventID: uuid.New(), TraceID: "trace-a", Matched: 2, FromCache: true, LatencyMs: 1.5},
		{EventID: uuid.New(), TraceID: "trace-b", Matched: 0, FromCache: false, LatencyMs: 12.3},
	}

	if err := sink.Write(context.Background(), entries); err != nil {
		t.Fatalf("expected LogSink.Write to never error, got %v", err)
	}

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	if lines != len(entries) {
		t.Fatalf("expected %d log lines, got %d", len(entries), lines)
	}
	if !bytes.Contains(buf.Bytes(), []byte("trace-a")) || !bytes.Contains(buf.Bytes(), []byte("trace-b")) {
		t.Fatal("expected both trace ids to appear in the log output")
	}
}
