package scorer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/salience-gateway/gateway/caching"
	"github.com/salience-gateway/gateway/heuristic"
	"github.com/salience-gateway/gateway/scorer"
	"github.com/salience-gateway/gateway/storage"
)

func TestFromCacheRanksBySimilarity(t *testing.T) {
	cache := caching.New(10, 10, 0, 0.7)
	cache.AddHeuristic(&heuristic.CachedHeuristic{
		ID:                 uuid.New(),
		ConditionEmbedding: []float64{1, 0},
		Confidence:         0.9,
	})

	cfg := scorer.DefaultConfig()
	matches := scorer.FromCache(cache, []float64{1, 0}, 0, cfg)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Similarity >= 1.0 || matches[0].Similarity < 0.9999 {
		t.Errorf("expected cosine similarity just below the 1.0 storage sentinel for identical vectors, got %v", matches[0].Similarity)
	}
}

func TestFromStorageStampsSentinelSimilarity(t *testing.T) {
	backend := &storage.MockBackend{
		Heuristics: []storage.Heuristic{
			{ID: uuid.New(), Confidence: 0.9, Effects: heuristic.SalienceVector{Threat: 0.5}},
		},
	}
	cfg := scorer.DefaultConfig()

	raw, scored, err := scorer.FromStorage(context.Background(), backend, "trace-1", "severe thunderstorm warning", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 1 || len(scored) != 1 {
		t.Fatalf("expected 1 raw and 1 scored heuristic, got %d/%d", len(raw), len(scored))
	}
	if scored[0].Similarity != 1.0 {
		t.Errorf("expected storage-sourced matches to carry similarity sentinel 1.0, got %v", scored[0].Similarity)
	}
}

func TestFromStorageFiltersBelowMinConfidence(t *testing.T) {
	backend := &storage.MockBackend{
		Heuristics: []storage.Heuristic{
			{ID: uuid.New(), Confidence: 0.1},
			{ID: uuid.New(), Confidence: 0.9},
		},
	}
	cfg := scorer.Config{StorageLimit: 10, MinHeuristicConfidence: 0.5}

	_, scored, err := scorer.FromStorage(context.Background(), backend, "", "some event", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scored) != 1 {
		t.Fatalf("expected only the high-confidence heuristic to survive filtering, got %d", len(scored))
	}
}

func TestFromStoragePropagatesBackendError(t *testing.T) {
	backend := &storage.MockBackend{QueryErr: errors.New("storage unavailable")}
	cfg := scorer.DefaultConfig()

	_, _, err := scorer.FromStorage(context.Background(), backend, "", "some event", cfg)
	if err == nil {
		t.Fatal("expected backend error to propagate")
	}
}

func TestWarmCacheInsertsHeuristicsIntoCache(t *testing.T) {
	cache := caching.New(10, 10, 0, 0.7)
	id := uuid.New()
	raw := []storage.Heuristic{{ID: id, ConditionEmbedding: []float64{1, 0}, Confidence: 0.8}}

	scorer.WarmCache(cache, raw, 1000)

	got, ok := cache.GetHeuristic(id, 1000)
	if !ok {
		t.Fatal("expected warmed heuristic to be retrievable from cache")
	}
	if got.Confidence != 0.8 {
		t.Errorf("expected confidence 0.8, got %v", got.Confidence)
	}
}

func TestMergeFoldsOnlyTheWinningMatchWithMonotonicMax(t *testing.T) {
	base := heuristic.SalienceVector{Novelty: 0.3}
	winner := scorer.ScoredHeuristic{Effects: heuristic.SalienceVector{Threat: 0.6, Novelty: 0.1}}

	got := scorer.Merge(base, winner)
	if got.Threat != 0.6 {
		t.Errorf("expected max threat 0.6, got %v", got.Threat)
	}
	if got.Novelty != 0.3 {
		t.Errorf("expected novelty to stay at base 0.3 since the winner's novelty is lower, got %v", got.Novelty)
	}
}
