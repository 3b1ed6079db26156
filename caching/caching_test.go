package caching_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/salience-gateway/gateway/caching"
	"github.com/salience-gateway/gateway/heuristic"
)

func newHeuristic(id uuid.UUID, embedding []float64, confidence float64, createdAtMs int64) *heuristic.CachedHeuristic {
	return &heuristic.CachedHeuristic{
		ID:                 id,
		ConditionEmbedding: embedding,
		Confidence:         confidence,
		CreatedAtMs:        createdAtMs,
		LastAccessedMs:     createdAtMs,
	}
}

func TestLRUEvictionRemovesLeastRecentlyAccessed(t *testing.T) {
	c := caching.New(2, 10, 0, 0.7)

	h1 := newHeuristic(uuid.New(), []float64{1, 0}, 0.9, 100)
	h2 := newHeuristic(uuid.New(), []float64{0, 1}, 0.9, 200)
	c.AddHeuristic(h1)
	c.AddHeuristic(h2)

	// Touch h2 so h1 becomes the least recently accessed.
	c.TouchHeuristic(h2.ID, 300)

	h3 := newHeuristic(uuid.New(), []float64{1, 1}, 0.9, 400)
	c.AddHeuristic(h3)

	if _, ok := c.GetHeuristic(h1.ID, 500); ok {
		t.Error("expected h1 to be evicted as least recently accessed")
	}
	if _, ok := c.GetHeuristic(h2.ID, 500); !ok {
		t.Error("expected h2 to survive eviction")
	}
}

func TestTTLExpiryMakesHeuristicInvisible(t *testing.T) {
	c := caching.New(10, 10, 1000, 0.7)
	h := newHeuristic(uuid.New(), []float64{1, 0}, 0.9, 0)
	c.AddHeuristic(h)

	if _, ok := c.GetHeuristic(h.ID, 500); !ok {
		t.Fatal("expected heuristic to be visible before TTL expiry")
	}
	if _, ok := c.GetHeuristic(h.ID, 1500); ok {
		t.Fatal("expected heuristic to be invisible after TTL expiry")
	}
}

func TestZeroTTLDisablesExpiry(t *testing.T) {
	c := caching.New(10, 10, 0, 0.7)
	h := newHeuristic(uuid.New(), []float64{1, 0}, 0.9, 0)
	c.AddHeuristic(h)

	if _, ok := c.GetHeuristic(h.ID, 1_000_000_000); !ok {
		t.Fatal("expected heuristic with TTL=0 to never expire")
	}
}

func TestFindMatchingHeuristicsFiltersByConfidenceAndRanksBySimilarity(t *testing.T) {
	c := caching.New(10, 10, 0, 0.7)
	low := newHeuristic(uuid.New(), []float64{1, 0}, 0.1, 0)
	high := newHeuristic(uuid.New(), []float64{1, 0}, 0.9, 0)
	c.AddHeuristic(low)
	c.AddHeuristic(high)

	matches := c.FindMatchingHeuristics([]float64{1, 0}, 10, 0.5, 100)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match above confidence threshold, got %d", len(matches))
	}
	if matches[0].Heuristic.ID != high.ID {
		t.Fatalf("expected the high-confidence heuristic to match")
	}
}

func TestFindMatchingHeuristicsIsPureAndDoesNotTouch(t *testing.T) {
	c := caching.New(10, 10, 0, 0.7)
	h := newHeuristic(uuid.New(), []float64{1, 0}, 0.9, 0)
	h.LastAccessedMs = 0
	c.AddHeuristic(h)

	matches := c.FindMatchingHeuristics([]float64{1, 0}, 10, 0.5, 999)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Heuristic.LastAccessedMs != 0 || matches[0].Heuristic.HitCount != 0 {
		t.Errorf("expected FindMatchingHeuristics to leave LRU/hit bookkeeping untouched, got LastAccessedMs=%d HitCount=%d", matches[0].Heuristic.LastAccessedMs, matches[0].Heuristic.HitCount)
	}
}

func TestTouchHeuristicBumpsHitBookkeeping(t *testing.T) {
	c := caching.New(10, 10, 0, 0.7)
	h := newHeuristic(uuid.New(), []float64{1, 0}, 0.9, 0)
	c.AddHeuristic(h)

	if !c.TouchHeuristic(h.ID, 999) {
		t.Fatal("expected TouchHeuristic to report the entry was present")
	}
	got, _ := c.GetHeuristic(h.ID, 999)
	if got.LastAccessedMs != 999 || got.LastHitMs != 999 || got.HitCount != 1 {
		t.Errorf("expected touch to bump LastAccessedMs/LastHitMs/HitCount, got %+v", got)
	}
}

func TestFindMatchingHeuristicsEmptyCacheShortCircuits(t *testing.T) {
	c := caching.New(10, 10, 0, 0.7)
	matches := c.FindMatchingHeuristics([]float64{1, 0}, 10, 0, 0)
	if len(matches) != 0 {
		t.Fatalf("expected no matches against an empty cache, got %d", len(matches))
	}
}

func TestIsNovelRespectsThreshold(t *testing.T) {
	c := caching.New(10, 10, 0, 0.9)
	c.AddEvent(&heuristic.CachedEvent{ID: uuid.New(), Embedding: []float64{1, 0}, CreatedAtMs: 0})

	if c.IsNovel([]float64{1, 0}) {
		t.Error("expected an identical embedding to not be novel")
	}
	if !c.IsNovel([]float64{0, 1}) {
		t.Error("expected an orthogonal embedding to be novel")
	}
}

func TestEventEvictionRemovesOldestFirst(t *testing.T) {
	c := caching.New(10, 2, 0, 0.7)
	e1 := &heuristic.CachedEvent{ID: uuid.New(), Embedding: []float64{1, 0}, CreatedAtMs: 100}
	e2 := &heuristic.CachedEvent{ID: uuid.New(), Embedding: []float64{0, 1}, CreatedAtMs: 200}
	c.AddEvent(e1)
	c.AddEvent(e2)

	e3 := &heuristic.CachedEvent{ID: uuid.New(), Embedding: []float64{1, 1}, CreatedAtMs: 300}
	c.AddEvent(e3)

	if _, ok := c.GetEvent(e1.ID); ok {
		t.Error("expected oldest event to be evicted")
	}
	if _, ok := c.GetEvent(e2.ID); !ok {
		t.Error("expected newer event to survive")
	}
}

func TestStatsComputesHitRate(t *testing.T) {
	c := caching.New(10, 10, 0, 0.7)
	c.RecordHit()
	c.RecordHit()
	c.RecordHit()
	c.RecordMiss()

	stats := c.Stats()
	if stats.TotalHits != 3 || stats.TotalMisses != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
	if stats.HitRate != 0.75 {
		t.Errorf("expected hit rate 0.75, got %v", stats.HitRate)
	}
}

func TestStatsHitRateZeroWhenNoTraffic(t *testing.T) {
	c := caching.New(10, 10, 0, 0.7)
	stats := c.Stats()
	if stats.HitRate != 0 {
		t.Errorf("expected hit rate 0 with no traffic, got %v", stats.HitRate)
	}
}

func TestRemoveHeuristicInvalidation(t *testing.T) {
	c := caching.New(10, 10, 0, 0.7)
	h := newHeuristic(uuid.New(), []float64{1, 0}, 0.9, 0)
	c.AddHeuristic(h)

	if !c.RemoveHeuristic(h.ID) {
		t.Fatal("expected RemoveHeuristic to report the entry was present")
	}
	if c.RemoveHeuristic(h.ID) {
		t.Fatal("expected second RemoveHeuristic to report absence")
	}
}

func TestListHeuristicsEvictsExpiredEntries(t *testing.T) {
	c := caching.New(10, 10, 1000, 0.7)
	h := newHeuristic(uuid.New(), []float64{1, 0}, 0.9, 0)
	c.AddHeuristic(h)

	out := c.ListHeuristics(0, 5000)
	if len(out) != 0 {
		t.Fatalf("expected expired heuristic to be excluded from listing, got %d", len(out))
	}
	if _, ok := c.GetHeuristic(h.ID, 5000); ok {
		t.Fatal("expected ListHeuristics to have evicted the expired entry as a side effect")
	}
}
