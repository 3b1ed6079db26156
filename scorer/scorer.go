// Package scorer implements the cache-first, storage-fallback matching
// algorithm that sits between the L0 cache and the storage backend. It
// holds no state of its own and takes no lock — the service layer
// brackets the cache-path call with its exclusive (write) lock, since
// the cache lookup evicts expired entries as it goes, releases it
// before any call that touches storage, then re-acquires the write lock
// only to warm the cache with what storage returned. Concurrent cache
// lookups therefore run one at a time, not in parallel.
package scorer

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/salience-gateway/gateway/caching"
	"github.com/salience-gateway/gateway/heuristic"
	"github.com/salience-gateway/gateway/storage"
)

// Config bounds how many candidates each tier returns and the minimum
// confidence a heuristic needs to be considered at all.
type Config struct {
	CacheLimit              int
	StorageLimit            int
	MinHeuristicConfidence  float64
}

// DefaultConfig mirrors the values named in the wire contract: five
// candidates from the fast in-memory path, ten from the slow storage
// fallback, heuristics below 0.5 confidence never considered.
func DefaultConfig() Config {
	return Config{
		CacheLimit:             5,
		StorageLimit:           10,
		MinHeuristicConfidence: 0.5,
	}
}

// ScoredHeuristic is a matched heuristic carrying the similarity that
// surfaced it. A Similarity of exactly 1.0 is the sentinel this package
// uses for storage-sourced matches whose precise cosine score the
// storage backend does not report back — see FromStorage.
type ScoredHeuristic struct {
	ID         uuid.UUID
	Effects    heuristic.SalienceVector
	Confidence float64
	Similarity float64
}

// FromCache ranks cached heuristics against embedding using real cosine
// similarity. Call this while holding the service's write lock (the
// lookup evicts expired entries); it never blocks on I/O. A self-match
// is reported just below 1.0, keeping exactly 1.0 for storage-sourced
// matches.
func FromCache(cache *caching.MemoryCache, embedding []float64, nowMs int64, cfg Config) []ScoredHeuristic {
	matches := cache.FindMatchingHeuristics(embedding, cfg.CacheLimit, cfg.MinHeuristicConfidence, nowMs)
	out := make([]ScoredHeuristic, len(matches))
	for i, m := range matches {
		sim := m.Similarity
		if sim >= 1.0 {
			sim = math.Nextafter(1.0, 0)
		}
		out[i] = ScoredHeuristic{
			ID:         m.Heuristic.ID,
			Effects:    m.Heuristic.Effects,
			Confidence: m.Heuristic.Confidence,
			Similarity: sim,
		}
	}
	return out
}

// FromStorage queries the storage backend for matching heuristics by
// event text — storage does its own text-search ranking independent of
// embedding cosine similarity, which is what lets this path serve as a
// fallback even when embedding generation itself failed. It must be
// called with the service's lock released — this method may block on a
// network round trip. Every match is stamped with a Similarity of
// exactly 1.0: the storage service has already done its own ranking,
// and the gateway has no cheaper way to recover a precise cosine score
// for a heuristic it doesn't hold locally, so 1.0 here means
// "storage-ranked, treat as authoritative" rather than "identical
// vectors".
func FromStorage(ctx context.Context, backend storage.Backend, traceID string, eventText string, cfg Config) ([]storage.Heuristic, []ScoredHeuristic, error) {
	raw, err := backend.QueryMatchingHeuristics(ctx, traceID, eventText, cfg.MinHeuristicConfidence, cfg.StorageLimit, "")
	if err != nil {
		return nil, nil, fmt.Errorf("query storage for matching heuristics: %w", err)
	}

	scored := make([]ScoredHeuristic, 0, len(raw))
	for _, h := range raw {
		if h.Confidence < cfg.MinHeuristicConfidence {
			continue
		}
		scored = append(scored, ScoredHeuristic{
			ID:         h.ID,
			Effects:    h.Effects,
			Confidence: h.Confidence,
			Similarity: 1.0,
		})
	}
	return raw, scored, nil
}

// WarmCache inserts storage-sourced heuristics into the L0 cache so a
// near-identical future event hits the fast path. Call this while
// holding the service's write lock.
func WarmCache(cache *caching.MemoryCache, raw []storage.Heuristic, nowMs int64) {
	for _, h := range raw {
		cache.AddHeuristic(&heuristic.CachedHeuristic{
			ID:                 h.ID,
			ConditionText:      h.ConditionText,
			ConditionEmbedding: h.ConditionEmbedding,
			Effects:            h.Effects,
			Confidence:         h.Confidence,
			CreatedAtMs:        nowMs,
			LastAccessedMs:     nowMs,
		})
	}
}

// Merge folds the winning match's effects into base using monotonic-max,
// producing the final scored vector for evaluate_salience. Only the
// first match after ranking is ever the winner — ties among lower-ranked
// candidates are never consulted.
func Merge(base heuristic.SalienceVector, winner ScoredHeuristic) heuristic.SalienceVector {
	return heuristic.MergeMax(base, winner.Effects)
}
