package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salience-gateway/gateway/audit"
	"github.com/salience-gateway/gateway/caching"
	"github.com/salience-gateway/gateway/config"
	"github.com/salience-gateway/gateway/logger"
	"github.com/salience-gateway/gateway/observability"
	"github.com/salience-gateway/gateway/redisclient"
	"github.com/salience-gateway/gateway/refresh"
	"github.com/salience-gateway/gateway/router"
	"github.com/salience-gateway/gateway/scorer"
	"github.com/salience-gateway/gateway/service"
	"github.com/salience-gateway/gateway/storage"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	log.Info().Str("env", cfg.Env).Msg("salience gateway starting")

	backend := storage.NewHTTPBackend(storage.Config{
		BaseURL:            cfg.StorageAddress,
		ConnectTimeout:     cfg.StorageConnectTimeout,
		RequestTimeout:     cfg.StorageRequestTimeout,
		BreakerMaxFailures: uint32(cfg.BreakerMaxFailures),
		BreakerResetAfter:  cfg.BreakerResetAfter,
	})

	cache := caching.New(cfg.CacheMaxHeuristics, cfg.CacheMaxEvents, cfg.CacheHeuristicTTLMs, cfg.CacheNoveltyThreshold)

	var invalidator service.Invalidator
	var redisClient *redisclient.Client
	metrics := observability.NewMetrics()

	if cfg.RedisURL != "" {
		rc, err := redisclient.New(cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis init failed — running without cache-coherence fan-out")
		} else if err := rc.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Msg("redis ping failed — running without cache-coherence fan-out")
		} else {
			redisClient = rc
			invalidator = rc
			log.Info().Msg("redis connected, cache-coherence fan-out enabled")
		}
	}

	auditSink := audit.NewLogSink(log)
	auditPipeline := audit.NewPipeline(log, auditSink, audit.DefaultConfig())
	auditPipeline.Start(context.Background())

	scorerCfg := scorer.DefaultConfig()
	scorerCfg.MinHeuristicConfidence = cfg.SalienceMinHeuristicConfidence

	svc := service.New(cache, backend, service.Config{
		Scorer:                scorerCfg,
		BaselineNovelty:       cfg.SalienceBaselineNovelty,
		UnmatchedNoveltyBoost: cfg.SalienceUnmatchedNoveltyBoost,
	}, invalidator, auditPipeline, log)

	healthPoller := storage.NewHealthPoller(backend, log, cfg.StoragePollInterval)
	healthPoller.Start()

	cacheRefresher := refresh.New(backend, svc, cfg.RefreshInterval, cfg.RefreshMaxHeuristics, log)
	cacheRefresher.Start(context.Background())

	var subCancel context.CancelFunc
	if redisClient != nil {
		var subCtx context.Context
		subCtx, subCancel = context.WithCancel(context.Background())
		go redisClient.Subscribe(subCtx, svc, metrics.InvalidationsRx.Inc)
	}

	r := router.New(router.Deps{
		Config:  cfg,
		Logger:  log,
		Service: svc,
		Poller:  healthPoller,
		Metrics: metrics,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.DefaultTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	healthPoller.Stop()
	cacheRefresher.Stop()
	auditPipeline.Stop()
	if subCancel != nil {
		subCancel()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("gateway stopped gracefully")
	}
}
