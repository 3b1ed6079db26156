package config_test

import (
	"os"
	"testing"

	"github.com/salience-gateway/gateway/config"
)

func TestLoadConfigFromEnv(t *testing.T) {
	os.Setenv("STORAGE_ADDRESS", "http://storage.internal:50051")
	os.Setenv("CACHE_MAX_HEURISTICS", "250")
	os.Setenv("ENV", "test")
	defer func() {
		os.Unsetenv("STORAGE_ADDRESS")
		os.Unsetenv("CACHE_MAX_HEURISTICS")
		os.Unsetenv("ENV")
	}()

	cfg := config.Load()
	if cfg.StorageAddress != "http://storage.internal:50051" {
		t.Fatalf("expected STORAGE_ADDRESS to be loaded, got %s", cfg.StorageAddress)
	}
	if cfg.CacheMaxHeuristics != 250 {
		t.Fatalf("expected CACHE_MAX_HEURISTICS=250, got %d", cfg.CacheMaxHeuristics)
	}
	if cfg.Env != "test" {
		t.Fatalf("expected ENV=test, got %s", cfg.Env)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	os.Unsetenv("CACHE_NOVELTY_THRESHOLD")
	cfg := config.Load()
	if cfg.CacheNoveltyThreshold != 0.7 {
		t.Fatalf("expected default novelty threshold 0.7, got %f", cfg.CacheNoveltyThreshold)
	}
	if cfg.SalienceUnmatchedNoveltyBoost != 0.4 {
		t.Fatalf("expected default unmatched novelty boost 0.4, got %f", cfg.SalienceUnmatchedNoveltyBoost)
	}
}
