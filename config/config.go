/*
Package config loads the gateway's configuration from the environment
(with optional .env support via github.com/joho/godotenv), grouped the
way the upstream storage service groups its own settings: server,
storage, cache, salience scoring, and background refresh.
*/
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable of a running gateway instance.
type Config struct {
	// Server
	Addr            string
	Env             string
	GracefulTimeout time.Duration
	DefaultTimeout  time.Duration
	MaxBodyBytes    int64

	// Storage backend
	StorageAddress        string
	StorageConnectTimeout time.Duration
	StorageRequestTimeout time.Duration
	BreakerMaxFailures    int
	BreakerResetAfter     time.Duration
	StoragePollInterval   time.Duration

	// Cache
	CacheMaxEvents       int
	CacheMaxHeuristics   int
	CacheNoveltyThreshold float64
	CacheHeuristicTTLMs  int64

	// Salience scoring
	SalienceBaselineNovelty       float64
	SalienceUnmatchedNoveltyBoost float64
	SalienceMinHeuristicConfidence float64

	// Background refresh
	RefreshInterval      time.Duration
	RefreshMaxHeuristics int

	// Cache-coherence fan-out
	RedisURL                 string
	CacheInvalidationChannel string

	// Admin surface
	AdminServiceToken string
	RateLimitEnabled  bool
	RateLimitRPM      int
	RateLimitBurst    int

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads configuration from environment variables and an optional
// .env file in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:            getEnv("GRPC_HOST", "0.0.0.0") + ":" + getEnv("GRPC_PORT", "50052"),
		Env:             getEnv("ENV", "development"),
		GracefulTimeout: time.Duration(getEnvInt("GATEWAY_GRACEFUL_TIMEOUT_SEC", 15)) * time.Second,
		DefaultTimeout:  time.Duration(getEnvInt("GATEWAY_DEFAULT_TIMEOUT_SEC", 30)) * time.Second,
		MaxBodyBytes:    int64(getEnvInt("GATEWAY_MAX_BODY_BYTES", 1*1024*1024)),

		StorageAddress:        getEnv("STORAGE_ADDRESS", "http://localhost:50051"),
		StorageConnectTimeout: time.Duration(getEnvInt("STORAGE_CONNECT_TIMEOUT_SECS", 5)) * time.Second,
		StorageRequestTimeout: time.Duration(getEnvInt("STORAGE_REQUEST_TIMEOUT_SECS", 30)) * time.Second,
		BreakerMaxFailures:    getEnvInt("STORAGE_BREAKER_MAX_FAILURES", 5),
		BreakerResetAfter:     time.Duration(getEnvInt("STORAGE_BREAKER_RESET_SECS", 30)) * time.Second,
		StoragePollInterval:   time.Duration(getEnvInt("STORAGE_HEALTH_POLL_SECS", 10)) * time.Second,

		CacheMaxEvents:        getEnvInt("CACHE_MAX_EVENTS", 1000),
		CacheMaxHeuristics:    getEnvInt("CACHE_MAX_HEURISTICS", 50),
		CacheNoveltyThreshold: getEnvFloat("CACHE_NOVELTY_THRESHOLD", 0.7),
		CacheHeuristicTTLMs:   int64(getEnvInt("CACHE_HEURISTIC_TTL_MS", 600000)),

		SalienceBaselineNovelty:        getEnvFloat("SALIENCE_BASELINE_NOVELTY", 0.1),
		SalienceUnmatchedNoveltyBoost:  getEnvFloat("SALIENCE_UNMATCHED_NOVELTY_BOOST", 0.4),
		SalienceMinHeuristicConfidence: getEnvFloat("SALIENCE_MIN_HEURISTIC_CONFIDENCE", 0.5),

		RefreshInterval:      time.Duration(getEnvInt("REFRESH_INTERVAL_SECS", 5)) * time.Second,
		RefreshMaxHeuristics: getEnvInt("REFRESH_MAX_HEURISTICS", 100),

		RedisURL:                 getEnv("REDIS_URL", "redis://localhost:6379"),
		CacheInvalidationChannel: getEnv("CACHE_INVALIDATION_CHANNEL", "salience:cache:invalidate"),

		AdminServiceToken: getEnv("ADMIN_SERVICE_TOKEN", ""),
		RateLimitEnabled:  getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPM:      getEnvInt("RATE_LIMIT_RPM", 120),
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 20),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
		LogFile:   getEnv("LOG_FILE", ""),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
