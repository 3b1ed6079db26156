// Package observability wires the gateway's runtime signals —
// Prometheus metrics today — into a single registry the router can
// expose on /metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the gateway reports.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheSize        *prometheus.GaugeVec
	StorageHealthy   prometheus.Gauge
	AuditDropped     prometheus.Counter
	InvalidationsRx  prometheus.Counter
}

// NewMetrics creates and registers the gateway's collectors against a
// dedicated registry rather than the global default, so tests can
// construct independent instances without collector-already-registered
// panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "salience_gateway_requests_total",
			Help: "Total HTTP requests handled, by route and status code.",
		}, []string{"route", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salience_gateway_request_duration_ms",
			Help:    "Request latency in milliseconds, by route.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"route"}),

		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "salience_gateway_cache_hits_total",
			Help: "Evaluations resolved entirely from the in-memory heuristic cache.",
		}),

		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "salience_gateway_cache_misses_total",
			Help: "Evaluations that fell back to the storage backend.",
		}),

		CacheSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "salience_gateway_cache_size",
			Help: "Current number of entries held in the cache, by kind.",
		}, []string{"kind"}),

		StorageHealthy: f.NewGauge(prometheus.GaugeOpts{
			Name: "salience_gateway_storage_healthy",
			Help: "1 if the last storage health poll succeeded, 0 otherwise.",
		}),

		AuditDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "salience_gateway_audit_dropped_total",
			Help: "Audit entries dropped because the pipeline buffer was full.",
		}),

		InvalidationsRx: f.NewCounter(prometheus.CounterOpts{
			Name: "salience_gateway_invalidations_received_total",
			Help: "Cache-invalidation events received via the fan-out channel.",
		}),
	}
}

// Handler serves /metrics in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
