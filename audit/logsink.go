package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSink writes audit entries as structured log lines. It is the
// default Sink when no production sink is configured — unlike a
// database sink a dropped log line costs nothing to retry, so it
// never returns an error.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink returns a Sink that writes each entry as a log event.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "audit_log_sink").Logger()}
}

func (s *LogSink) Write(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		s.logger.Info().
			Str("event_id", e.EventID.String()).
			Str("trace_id", e.TraceID).
			Int("matched", e.Matched).
			Bool("from_cache", e.FromCache).
			Float64("latency_ms", e.LatencyMs).
			Msg("evaluate_salience")
	}
	return nil
}
