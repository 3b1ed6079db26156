/*
Package service implements SalienceService, the component every RPC in
the wire contract ultimately calls into. It owns the single
sync.RWMutex that guards the L0 cache — per the concurrency model the
cache itself holds no lock, and this mutex is never held across a call
into the storage backend. A cache hit only ever needs the lock; a cache
miss drops it, makes one network round trip, then reacquires it briefly
to warm the cache with whatever storage returned.
*/
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/salience-gateway/gateway/audit"
	"github.com/salience-gateway/gateway/caching"
	"github.com/salience-gateway/gateway/heuristic"
	"github.com/salience-gateway/gateway/scorer"
	"github.com/salience-gateway/gateway/storage"
)

// Invalidator broadcasts a cache-coherence event to sibling gateway
// replicas. A nil Invalidator means the service runs single-instance.
type Invalidator interface {
	Publish(ctx context.Context, heuristicID uuid.UUID, changeType string) error
}

// Config bounds the salience-scoring behaviour that isn't part of the
// scorer's own cache/storage limits: the baseline novelty every event
// starts with, and the extra boost applied when the storage fallback
// fails, or when nothing matched and the event is judged novel against
// recently seen events.
type Config struct {
	Scorer                scorer.Config
	BaselineNovelty       float64
	UnmatchedNoveltyBoost float64
}

// Service is the salience-evaluation fast path: cache-first scoring
// with a storage-backed fallback, plus the administrative operations
// that keep the cache coherent.
type Service struct {
	mu      sync.RWMutex
	cache   *caching.MemoryCache
	backend storage.Backend
	cfg     Config

	invalidator Invalidator
	auditor     *audit.Pipeline
	logger      zerolog.Logger
}

// New constructs a Service around an existing cache and storage backend.
func New(cache *caching.MemoryCache, backend storage.Backend, cfg Config, invalidator Invalidator, auditor *audit.Pipeline, logger zerolog.Logger) *Service {
	return &Service{
		cache:       cache,
		backend:     backend,
		cfg:         cfg,
		invalidator: invalidator,
		auditor:     auditor,
		logger:      logger.With().Str("component", "salience_service").Logger(),
	}
}

// EvaluateRequest is the normalized form of an evaluate_salience call.
type EvaluateRequest struct {
	EventID   uuid.UUID
	EventText string
	Embedding []float64 // optional; generated from EventText via storage when absent
	TraceID   string
}

// EvaluateResponse is the normalized form of an evaluate_salience reply.
// MatchedHeuristicID is nil when nothing matched. Error carries a
// recoverable scoring failure (the storage fallback itself failing) —
// it is never set for a recovered embedding failure, since per the
// scoring algorithm that case demotes silently to the storage path
// instead of surfacing as an error. NoveltyDetectionSkipped is always
// true: this gateway never runs a standalone novelty-detection model,
// only the baseline/unmatched-boost heuristic below.
type EvaluateResponse struct {
	EventID                 uuid.UUID
	Salience                heuristic.SalienceVector
	FromCache               bool
	MatchedHeuristicID      *uuid.UUID
	Error                   string
	NoveltyDetectionSkipped bool
}

// EvaluateSalience scores a single event: cache-first heuristic
// matching with a text-keyed storage fallback, composed with a
// baseline novelty score via monotonic-max merge. Only the first match
// after ranking ever wins; it alone is touched and merged.
func (s *Service) EvaluateSalience(ctx context.Context, req EvaluateRequest) (EvaluateResponse, error) {
	start := time.Now()
	if req.EventID == uuid.Nil {
		req.EventID = uuid.New()
	}

	resp := EvaluateResponse{
		EventID:                 req.EventID,
		Salience:                heuristic.SalienceVector{Novelty: s.cfg.BaselineNovelty},
		NoveltyDetectionSkipped: true,
	}

	if req.EventText == "" && req.Embedding == nil {
		// Nothing to score against — skip embedding generation and the
		// storage fallback entirely rather than pay a round trip for an
		// event with no content.
		s.recordAudit(req, resp, time.Since(start), false)
		return resp, nil
	}

	embedding := req.Embedding
	var embedErr error
	if embedding == nil {
		embedding, embedErr = s.backend.GenerateEmbedding(ctx, req.TraceID, req.EventText)
		if embedErr != nil {
			s.logger.Warn().Err(embedErr).Str("trace_id", req.TraceID).Msg("embedding generation failed, falling back to storage text query")
		}
	}

	nowMs := heuristic.NowMs(time.Now())

	// Cache lookup path — only reachable with an embedding in hand.
	// Embedding failure alone never propagates; it only demotes
	// straight to the storage-fallback path below.
	var cacheMatches []scorer.ScoredHeuristic
	if embedErr == nil {
		s.mu.Lock()
		cacheMatches = scorer.FromCache(s.cache, embedding, nowMs, s.cfg.Scorer)
		if len(cacheMatches) > 0 {
			winner := cacheMatches[0]
			s.cache.RecordHit()
			s.cache.TouchHeuristic(winner.ID, nowMs)
			s.cache.AddEvent(&heuristic.CachedEvent{ID: req.EventID, Embedding: embedding, CreatedAtMs: nowMs})
		}
		s.mu.Unlock()
	}

	if len(cacheMatches) > 0 {
		winner := cacheMatches[0]
		id := winner.ID
		resp.Salience = scorer.Merge(resp.Salience, winner)
		resp.FromCache = true
		resp.MatchedHeuristicID = &id
		s.recordAudit(req, resp, time.Since(start), true)
		return resp, nil
	}

	var novel bool
	if embedErr == nil {
		s.mu.Lock()
		novel = s.cache.IsNovel(embedding)
		s.mu.Unlock()
	}

	// Cache miss, or no embedding at all — fall back to the text-keyed
	// storage query with no lock held.
	raw, storageMatches, err := scorer.FromStorage(ctx, s.backend, req.TraceID, req.EventText, s.cfg.Scorer)

	s.mu.Lock()
	s.cache.RecordMiss()
	if embedErr == nil {
		s.cache.AddEvent(&heuristic.CachedEvent{ID: req.EventID, Embedding: embedding, CreatedAtMs: nowMs})
	}
	if err == nil {
		scorer.WarmCache(s.cache, raw, nowMs)
		if len(storageMatches) > 0 {
			s.cache.TouchHeuristic(storageMatches[0].ID, nowMs)
		}
	}
	s.mu.Unlock()

	if err != nil {
		// The storage query itself failing is the one scoring error
		// that propagates — surfaced on the response rather than
		// failing the call outright, with the unmatched-novelty boost
		// applied.
		resp.Salience.Novelty = maxf(resp.Salience.Novelty, s.cfg.UnmatchedNoveltyBoost)
		resp.Error = err.Error()
		s.recordAudit(req, resp, time.Since(start), false)
		s.logger.Warn().Err(err).Str("trace_id", req.TraceID).Msg("storage fallback failed, using novelty-only salience")
		return resp, err
	}

	if len(storageMatches) > 0 {
		winner := storageMatches[0]
		id := winner.ID
		resp.Salience = scorer.Merge(resp.Salience, winner)
		resp.FromCache = true
		resp.MatchedHeuristicID = &id
	} else if novel {
		resp.Salience.Novelty = maxf(resp.Salience.Novelty, s.cfg.UnmatchedNoveltyBoost)
	}

	s.recordAudit(req, resp, time.Since(start), resp.FromCache)
	return resp, nil
}

func (s *Service) recordAudit(req EvaluateRequest, resp EvaluateResponse, latency time.Duration, fromCache bool) {
	if s.auditor == nil {
		return
	}
	matched := 0
	if resp.MatchedHeuristicID != nil {
		matched = 1
	}
	s.auditor.Record(audit.Entry{
		EventID:   resp.EventID,
		TraceID:   req.TraceID,
		Matched:   matched,
		FromCache: fromCache,
		LatencyMs: float64(latency.Microseconds()) / 1000.0,
	})
}

// ─── Administrative operations ─────────────────────────────

// FlushCache evicts every cached heuristic and returns how many were removed.
func (s *Service) FlushCache() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.FlushHeuristics()
}

// EvictFromCache evicts a single heuristic by ID.
func (s *Service) EvictFromCache(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.RemoveHeuristic(id)
}

// GetCacheStats returns a snapshot of cache performance counters.
func (s *Service) GetCacheStats() heuristic.CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Stats()
}

// ListCachedHeuristics returns up to limit cached heuristics.
func (s *Service) ListCachedHeuristics(limit int) []*heuristic.CachedHeuristic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.ListHeuristics(limit, heuristic.NowMs(time.Now()))
}

// NotifyHeuristicChange invalidates the cached copy of a heuristic
// regardless of changeType — creation, update, and deletion all make
// any cached copy stale, and an unrecognised changeType is treated the
// same way rather than risking a silently stale entry.
func (s *Service) NotifyHeuristicChange(ctx context.Context, id uuid.UUID, changeType string) {
	switch changeType {
	case "created", "updated", "deleted":
	default:
		s.logger.Warn().Str("change_type", changeType).Str("heuristic_id", id.String()).Msg("unrecognised heuristic change type, evicting anyway")
	}

	s.mu.Lock()
	s.cache.RemoveHeuristic(id)
	s.mu.Unlock()

	if s.invalidator != nil {
		if err := s.invalidator.Publish(ctx, id, changeType); err != nil {
			s.logger.Warn().Err(err).Str("heuristic_id", id.String()).Msg("cache invalidation fan-out failed")
		}
	}
}

// ApplyRemoteInvalidation evicts a heuristic in response to a fan-out
// notification received from another replica. It never republishes —
// only the RPC handler that originates a change publishes.
func (s *Service) ApplyRemoteInvalidation(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.RemoveHeuristic(id)
}

// WarmFromStorage is called by the background CacheRefresher to push
// high-confidence heuristics into the cache proactively.
func (s *Service) WarmFromStorage(raw []storage.Heuristic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scorer.WarmCache(s.cache, raw, heuristic.NowMs(time.Now()))
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
