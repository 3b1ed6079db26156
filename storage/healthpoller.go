package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HealthPoller continuously probes the storage backend in the
// background so that get_health_details can report a status that is at
// most one poll interval stale, instead of making every health request
// block on a live network call.
type HealthPoller struct {
	backend  Backend
	logger   zerolog.Logger
	interval time.Duration

	mu      sync.RWMutex
	healthy bool
	lastErr error

	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthPoller creates a poller for backend, checking at the given
// interval (minimum one second).
func NewHealthPoller(backend Backend, logger zerolog.Logger, interval time.Duration) *HealthPoller {
	if interval < time.Second {
		interval = time.Second
	}
	return &HealthPoller{
		backend:  backend,
		logger:   logger.With().Str("component", "storage_health_poller").Logger(),
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the background polling loop. Call Stop to shut it down.
func (hp *HealthPoller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	hp.cancel = cancel
	hp.logger.Info().Dur("interval", hp.interval).Msg("starting storage health poller")
	go hp.loop(ctx)
}

// Stop gracefully shuts down the poller and waits for it to finish.
func (hp *HealthPoller) Stop() {
	if hp.cancel != nil {
		hp.cancel()
	}
	<-hp.done
	hp.logger.Info().Msg("storage health poller stopped")
}

func (hp *HealthPoller) loop(ctx context.Context) {
	defer close(hp.done)

	hp.poll(ctx)

	ticker := time.NewTicker(hp.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hp.poll(ctx)
		}
	}
}

func (hp *HealthPoller) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, hp.interval/2)
	defer cancel()

	err := hp.backend.Healthy(pollCtx)

	hp.mu.Lock()
	wasHealthy := hp.healthy
	hp.healthy = err == nil
	hp.lastErr = err
	hp.mu.Unlock()

	if wasHealthy != (err == nil) {
		if err == nil {
			hp.logger.Info().Msg("storage backend recovered")
		} else {
			hp.logger.Warn().Err(err).Msg("storage backend degraded")
		}
	}
}

// IsHealthy returns the last known reachability of the storage backend.
func (hp *HealthPoller) IsHealthy() bool {
	hp.mu.RLock()
	defer hp.mu.RUnlock()
	return hp.healthy
}

// LastError returns the error from the most recent probe, nil if the
// last probe succeeded.
func (hp *HealthPoller) LastError() error {
	hp.mu.RLock()
	defer hp.mu.RUnlock()
	return hp.lastErr
}
