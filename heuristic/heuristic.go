// Package heuristic defines the salience data model shared by the cache,
// the scorer, and the service layer: the nine-dimensional SalienceVector,
// the cached heuristic/event records, and the monotonic-max merge used to
// compose a base vector with whatever heuristics matched an event.
package heuristic

import (
	"time"

	"github.com/google/uuid"
)

// SalienceVector scores an event across nine independent dimensions.
// Every field is expected to live in [0.0, 1.0]; callers that produce
// values outside that range do so at their own risk — this package does
// not clamp, since clamping would hide a caller bug.
type SalienceVector struct {
	Threat         float64 `json:"threat"`
	Opportunity    float64 `json:"opportunity"`
	Humor          float64 `json:"humor"`
	Novelty        float64 `json:"novelty"`
	GoalRelevance  float64 `json:"goal_relevance"`
	Social         float64 `json:"social"`
	Emotional      float64 `json:"emotional"`
	Actionability  float64 `json:"actionability"`
	Habituation    float64 `json:"habituation"`
}

// MergeMax combines two vectors field-by-field, keeping the larger value
// in each of the nine dimensions. It is commutative and idempotent, so
// folding it over any number of heuristic effects in any order produces
// the same result.
func MergeMax(a, b SalienceVector) SalienceVector {
	return SalienceVector{
		Threat:        maxf(a.Threat, b.Threat),
		Opportunity:   maxf(a.Opportunity, b.Opportunity),
		Humor:         maxf(a.Humor, b.Humor),
		Novelty:       maxf(a.Novelty, b.Novelty),
		GoalRelevance: maxf(a.GoalRelevance, b.GoalRelevance),
		Social:        maxf(a.Social, b.Social),
		Emotional:     maxf(a.Emotional, b.Emotional),
		Actionability: maxf(a.Actionability, b.Actionability),
		Habituation:   maxf(a.Habituation, b.Habituation),
	}
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// CachedHeuristic is a condition → salience-boost rule held in the L0
// cache. ConditionEmbedding is compared against an incoming event's
// embedding via cosine similarity to decide whether the heuristic fires;
// Effects carries the SalienceVector boost to merge in when it does.
type CachedHeuristic struct {
	ID                 uuid.UUID
	Name               string
	ConditionText      string
	ConditionEmbedding []float64
	Effects            SalienceVector
	Confidence         float64
	CreatedAtMs        int64
	LastAccessedMs     int64
	LastHitMs          int64
	HitCount           int64
}

// Touch records a match against h: LastAccessedMs for LRU ranking, and
// LastHitMs/HitCount for hit-bookkeeping introspection — the two move
// together here because a match is, definitionally, both a use and a
// hit, but callers that just want an LRU refresh without recording a
// hit should not call this.
func (h *CachedHeuristic) Touch(nowMs int64) {
	h.LastAccessedMs = nowMs
	h.LastHitMs = nowMs
	h.HitCount++
}

// CachedEvent is a previously scored event retained briefly so that a
// near-duplicate event arriving shortly after can be recognised as
// non-novel instead of re-triggering the full unmatched-novelty boost.
type CachedEvent struct {
	ID          uuid.UUID
	Embedding   []float64
	Salience    SalienceVector
	CreatedAtMs int64
}

// CacheStats summarises cache performance for the administrative
// get_cache_stats operation.
type CacheStats struct {
	TotalHits       int64   `json:"total_hits"`
	TotalMisses     int64   `json:"total_misses"`
	HitRate         float64 `json:"hit_rate"`
	HeuristicCount  int     `json:"heuristic_count"`
	EventCount      int     `json:"event_count"`
	EvictionCount   int64   `json:"eviction_count"`
	ExpiredCount    int64   `json:"expired_count"`
}

// NowMs returns the current time in epoch milliseconds — the clock the
// whole cache layer uses for TTL and LRU bookkeeping, isolated here so
// tests can compute expected values the same way production code does.
func NowMs(t time.Time) int64 {
	return t.UnixMilli()
}
