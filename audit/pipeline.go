/*
Package audit is a trimmed, non-blocking pipeline that records one
compact line per evaluate_salience call — enough to see whether a
heuristic fired (a match count, not which heuristic) and how fast,
without the evaluation path ever waiting
on a write. It is deliberately far smaller than a general analytics
ingestion system: one event type, one sink, no batching SLAs — the
gateway's fast path has no cost/wallet/billing concerns to report on.
*/
package audit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Entry is a single evaluate_salience audit record.
type Entry struct {
	EventID   uuid.UUID
	TraceID   string
	Matched   int
	FromCache bool
	LatencyMs float64
}

// Sink is the destination for audit entries.
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
}

// Config bounds the pipeline's buffering behaviour.
type Config struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultConfig returns sane defaults for a single-process gateway.
func DefaultConfig() Config {
	return Config{
		BufferSize:    10000,
		BatchSize:     200,
		FlushInterval: 2 * time.Second,
	}
}

// Pipeline buffers audit entries in a channel and flushes them to Sink
// from a single background goroutine, so Record never blocks the
// evaluate_salience request path.
type Pipeline struct {
	logger zerolog.Logger
	cfg    Config
	sink   Sink

	ch      chan Entry
	dropped int64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPipeline creates a Pipeline backed by sink. Call Start to begin
// flushing and Stop to drain and shut down.
func NewPipeline(logger zerolog.Logger, sink Sink, cfg Config) *Pipeline {
	return &Pipeline{
		logger: logger.With().Str("component", "evaluation_audit").Logger(),
		cfg:    cfg,
		sink:   sink,
		ch:     make(chan Entry, cfg.BufferSize),
		done:   make(chan struct{}),
	}
}

// Record enqueues an entry. If the buffer is full the entry is dropped
// and counted rather than blocking the caller — the evaluation path
// must never wait on audit logging.
func (p *Pipeline) Record(e Entry) {
	select {
	case p.ch <- e:
	default:
		atomic.AddInt64(&p.dropped, 1)
	}
}

// Start begins the background flush loop.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	go p.loop(ctx)
}

// Stop flushes any buffered entries and shuts the pipeline down.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

// DroppedCount returns how many entries have been dropped due to a full
// buffer since startup.
func (p *Pipeline) DroppedCount() int64 {
	return atomic.LoadInt64(&p.dropped)
}

func (p *Pipeline) loop(ctx context.Context) {
	defer close(p.done)

	batch := make([]Entry, 0, p.cfg.BatchSize)
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := p.sink.Write(context.Background(), batch); err != nil {
			p.logger.Warn().Err(err).Int("entries", len(batch)).Msg("audit flush failed")
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-p.ch:
			batch = append(batch, e)
			if len(batch) >= p.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case e := <-p.ch:
					batch = append(batch, e)
				default:
					flush()
					if dropped := p.DroppedCount(); dropped > 0 {
						p.logger.Warn().Int64("dropped", dropped).Msg("audit entries dropped while buffer was full")
					}
					return
				}
			}
		}
	}
}
