/*
Package refresh runs a background loop that keeps the cache warm by
periodically pulling the highest-confidence heuristics from storage,
independent of request traffic. It follows the same start/stop and
single-flight polling shape as the gateway's storage health poller —
one goroutine, a ticker, a cancellable context — scaled down from the
teacher's periodic model-catalog sync to a single storage call per tick.
*/
package refresh

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/salience-gateway/gateway/storage"
)

// Warmer is the subset of service.Service the refresher needs —
// narrowed to avoid an import cycle between service and refresh.
type Warmer interface {
	WarmFromStorage(raw []storage.Heuristic)
}

// Refresher periodically repopulates the cache from storage.
type Refresher struct {
	backend  storage.Backend
	warmer   Warmer
	logger   zerolog.Logger
	interval time.Duration
	limit    int

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Refresher. limit bounds how many heuristics are
// pulled per tick.
func New(backend storage.Backend, warmer Warmer, interval time.Duration, limit int, logger zerolog.Logger) *Refresher {
	return &Refresher{
		backend:  backend,
		warmer:   warmer,
		logger:   logger.With().Str("component", "cache_refresher").Logger(),
		interval: interval,
		limit:    limit,
		done:     make(chan struct{}),
	}
}

// Start begins the periodic refresh loop.
func (r *Refresher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	go r.loop(ctx)
}

// Stop halts the refresh loop and waits for it to exit.
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	<-r.done
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	heuristics, err := r.backend.ListTopHeuristics(ctx, r.limit)
	if err != nil {
		r.logger.Warn().Err(err).Msg("cache refresh pull failed")
		return
	}
	r.warmer.WarmFromStorage(heuristics)
	r.logger.Debug().Int("count", len(heuristics)).Msg("cache refreshed from storage")
}
