// Package router wires the gateway's middleware chain and mounts its
// HTTP routes onto a chi.Router.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/salience-gateway/gateway/config"
	"github.com/salience-gateway/gateway/handler"
	gwmw "github.com/salience-gateway/gateway/middleware"
	"github.com/salience-gateway/gateway/observability"
	"github.com/salience-gateway/gateway/service"
	"github.com/salience-gateway/gateway/storage"
)

// Deps bundles everything the router needs to mount handlers.
type Deps struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Service *service.Service
	Poller  *storage.HealthPoller
	Metrics *observability.Metrics
}

// New returns a configured chi.Router with the full middleware chain
// and every route mounted.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(gwmw.CORSMiddleware([]string{"*"}))
	r.Use(gwmw.SecurityHeadersMiddleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(mwRequestLogger(d.Logger))
	r.Use(mwMaxBodySize(d.Config.MaxBodyBytes))
	r.Use(gwmw.Timeout(d.Logger, d.Config.DefaultTimeout))

	salienceHandler := handler.NewSalienceHandler(d.Service, d.Logger)
	cacheHandler := handler.NewCacheHandler(d.Service, d.Logger)
	healthHandler := handler.NewHealthHandler(d.Poller)

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/healthz/details", healthHandler.HealthzDetails)

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Get("/openapi.json", handler.OpenAPIHandler())
	r.Get("/docs", handler.SwaggerUIHandler())

	r.Post("/v1/salience/evaluate", salienceHandler.Evaluate)

	r.Route("/v1/cache", func(r chi.Router) {
		adminAuth := gwmw.AdminAuth(d.Config.AdminServiceToken)
		rateLimiter := gwmw.NewRateLimiter(d.Logger, d.Config.RateLimitEnabled, d.Config.RateLimitRPM, d.Config.RateLimitBurst)
		r.Use(adminAuth)
		r.Use(rateLimiter.Handler)

		r.Get("/stats", cacheHandler.Stats)
		r.Get("/heuristics", cacheHandler.List)
		r.Delete("/", cacheHandler.FlushAll)
		r.Delete("/heuristics/{id}", cacheHandler.Evict)
		r.Post("/heuristics/{id}/notify", cacheHandler.Notify)
	})

	return r
}

func mwMaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = 1 * 1024 * 1024
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > 0 && r.ContentLength > maxBytes {
				http.Error(w, `{"error":"request body too large"}`, http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func mwRequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", chimw.GetReqID(r.Context())).
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
