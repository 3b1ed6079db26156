// Package caching implements the L0 in-memory heuristic cache: the fast
// path every evaluate_salience call consults before falling back to the
// remote storage backend. MemoryCache itself holds no lock — per the
// concurrency model, a single sync.RWMutex one layer up (in the service
// package) brackets every call into this package, and never stays held
// across a network call. That split is what lets this package stay a
// plain map-backed structure instead of a self-synchronizing one.
package caching

import (
	"sort"

	"github.com/google/uuid"

	"github.com/salience-gateway/gateway/heuristic"
)

// MemoryCache holds the cached heuristics and recently-scored events for
// a single gateway instance. Not safe for concurrent use on its own.
type MemoryCache struct {
	heuristics map[uuid.UUID]*heuristic.CachedHeuristic
	events     map[uuid.UUID]*heuristic.CachedEvent

	maxHeuristics    int
	maxEvents        int
	heuristicTTLMs   int64
	noveltyThreshold float64

	hits      int64
	misses    int64
	evictions int64
	expired   int64
}

// New creates an empty MemoryCache. heuristicTTLMs of 0 disables TTL
// expiry entirely (heuristics only leave the cache via LRU eviction or
// explicit invalidation).
func New(maxHeuristics, maxEvents int, heuristicTTLMs int64, noveltyThreshold float64) *MemoryCache {
	return &MemoryCache{
		heuristics:       make(map[uuid.UUID]*heuristic.CachedHeuristic),
		events:           make(map[uuid.UUID]*heuristic.CachedEvent),
		maxHeuristics:    maxHeuristics,
		maxEvents:        maxEvents,
		heuristicTTLMs:   heuristicTTLMs,
		noveltyThreshold: noveltyThreshold,
	}
}

// ─── Heuristics ─────────────────────────────────────────────

// AddHeuristic inserts or replaces a heuristic, evicting the least
// recently accessed entry first if the cache is at capacity.
func (c *MemoryCache) AddHeuristic(h *heuristic.CachedHeuristic) {
	if _, exists := c.heuristics[h.ID]; !exists && c.maxHeuristics > 0 && len(c.heuristics) >= c.maxHeuristics {
		c.evictLRUHeuristic()
	}
	c.heuristics[h.ID] = h
}

// GetHeuristic is a pure lookup by ID — it does not update LRU or hit
// bookkeeping. Callers that want that accounting call TouchHeuristic
// separately. A heuristic past its TTL is evicted and reported as absent.
func (c *MemoryCache) GetHeuristic(id uuid.UUID, nowMs int64) (*heuristic.CachedHeuristic, bool) {
	h, ok := c.heuristics[id]
	if !ok {
		return nil, false
	}
	if c.isExpired(h, nowMs) {
		delete(c.heuristics, id)
		c.expired++
		return nil, false
	}
	return h, true
}

// TouchHeuristic refreshes the LRU timestamp and bumps the hit
// bookkeeping (LastHitMs, HitCount) for a heuristic without fetching
// its value, used when a match is found via FindMatchingHeuristics
// (which iterates the map directly rather than calling GetHeuristic).
func (c *MemoryCache) TouchHeuristic(id uuid.UUID, nowMs int64) bool {
	h, ok := c.heuristics[id]
	if !ok {
		return false
	}
	h.Touch(nowMs)
	return true
}

// RemoveHeuristic evicts a single heuristic by ID. Returns false if it
// was not present (e.g. already expired or never cached).
func (c *MemoryCache) RemoveHeuristic(id uuid.UUID) bool {
	if _, ok := c.heuristics[id]; !ok {
		return false
	}
	delete(c.heuristics, id)
	return true
}

// FlushHeuristics clears every cached heuristic and returns how many
// were removed.
func (c *MemoryCache) FlushHeuristics() int {
	n := len(c.heuristics)
	c.heuristics = make(map[uuid.UUID]*heuristic.CachedHeuristic)
	return n
}

// ListHeuristics returns up to limit cached heuristics (0 = unlimited).
// Expired entries are skipped and evicted as a side effect.
func (c *MemoryCache) ListHeuristics(limit int, nowMs int64) []*heuristic.CachedHeuristic {
	out := make([]*heuristic.CachedHeuristic, 0, len(c.heuristics))
	for id, h := range c.heuristics {
		if c.isExpired(h, nowMs) {
			delete(c.heuristics, id)
			c.expired++
			continue
		}
		out = append(out, h)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// GetHeuristicsByConfidence returns cached heuristics whose confidence is
// at least minConfidence, highest confidence first.
func (c *MemoryCache) GetHeuristicsByConfidence(minConfidence float64, nowMs int64) []*heuristic.CachedHeuristic {
	var out []*heuristic.CachedHeuristic
	for id, h := range c.heuristics {
		if c.isExpired(h, nowMs) {
			delete(c.heuristics, id)
			c.expired++
			continue
		}
		if h.Confidence >= minConfidence {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// Match pairs a heuristic with the cosine similarity score that surfaced it.
type Match struct {
	Heuristic  *heuristic.CachedHeuristic
	Similarity float64
}

// FindMatchingHeuristics ranks cached heuristics by cosine similarity
// between their condition embedding and the supplied event embedding,
// filters out anything below minConfidence, and returns the top `limit`
// matches in descending similarity order. Apart from evicting expired
// entries it passes over, it does not mutate the cache: no LRU or
// hit-count state changes; callers decide which
// single match, if any, counts as a hit and touch that one explicitly
// via TouchHeuristic.
func (c *MemoryCache) FindMatchingHeuristics(embedding []float64, limit int, minConfidence float64, nowMs int64) []Match {
	candidates := make([]Match, 0, len(c.heuristics))
	for id, h := range c.heuristics {
		if c.isExpired(h, nowMs) {
			delete(c.heuristics, id)
			c.expired++
			continue
		}
		if h.Confidence < minConfidence {
			continue
		}
		sim := heuristic.CosineSimilarity(embedding, h.ConditionEmbedding)
		candidates = append(candidates, Match{Heuristic: h, Similarity: sim})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Similarity > candidates[j].Similarity })

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func (c *MemoryCache) isExpired(h *heuristic.CachedHeuristic, nowMs int64) bool {
	if c.heuristicTTLMs <= 0 {
		return false
	}
	return nowMs-h.CreatedAtMs > c.heuristicTTLMs
}

func (c *MemoryCache) evictLRUHeuristic() {
	var oldestID uuid.UUID
	var oldestAccess int64
	first := true
	for id, h := range c.heuristics {
		if first || h.LastAccessedMs < oldestAccess {
			oldestID = id
			oldestAccess = h.LastAccessedMs
			first = false
		}
	}
	if !first {
		delete(c.heuristics, oldestID)
		c.evictions++
	}
}

// ─── Events ─────────────────────────────────────────────────

// AddEvent retains a scored event for novelty comparison, evicting the
// oldest event first if the cache is at capacity.
func (c *MemoryCache) AddEvent(e *heuristic.CachedEvent) {
	if _, exists := c.events[e.ID]; !exists && c.maxEvents > 0 && len(c.events) >= c.maxEvents {
		c.evictOldestEvent()
	}
	c.events[e.ID] = e
}

// GetEvent returns a previously cached event by ID.
func (c *MemoryCache) GetEvent(id uuid.UUID) (*heuristic.CachedEvent, bool) {
	e, ok := c.events[id]
	return e, ok
}

// IsNovel reports whether no cached event is similar enough (at or above
// the configured novelty threshold) to the given embedding.
func (c *MemoryCache) IsNovel(embedding []float64) bool {
	_, sim, found := c.FindSimilarEvent(embedding)
	return !found || sim < c.noveltyThreshold
}

// FindSimilarEvent returns the most similar cached event to embedding,
// if any meet the novelty threshold.
func (c *MemoryCache) FindSimilarEvent(embedding []float64) (*heuristic.CachedEvent, float64, bool) {
	var best *heuristic.CachedEvent
	var bestSim float64
	for _, e := range c.events {
		sim := heuristic.CosineSimilarity(embedding, e.Embedding)
		if sim > bestSim || best == nil {
			if best == nil || sim > bestSim {
				best = e
				bestSim = sim
			}
		}
	}
	if best == nil || bestSim < c.noveltyThreshold {
		return best, bestSim, false
	}
	return best, bestSim, true
}

func (c *MemoryCache) evictOldestEvent() {
	var oldestID uuid.UUID
	var oldestCreated int64
	first := true
	for id, e := range c.events {
		if first || e.CreatedAtMs < oldestCreated {
			oldestID = id
			oldestCreated = e.CreatedAtMs
			first = false
		}
	}
	if !first {
		delete(c.events, oldestID)
		c.evictions++
	}
}

// ─── Bookkeeping ────────────────────────────────────────────

// RecordHit increments the cache-hit counter used by Stats' hit rate.
func (c *MemoryCache) RecordHit() { c.hits++ }

// RecordMiss increments the cache-miss counter used by Stats' hit rate.
func (c *MemoryCache) RecordMiss() { c.misses++ }

// Stats snapshots current cache performance counters.
func (c *MemoryCache) Stats() heuristic.CacheStats {
	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return heuristic.CacheStats{
		TotalHits:      c.hits,
		TotalMisses:    c.misses,
		HitRate:        hitRate,
		HeuristicCount: len(c.heuristics),
		EventCount:     len(c.events),
		EvictionCount:  c.evictions,
		ExpiredCount:   c.expired,
	}
}
