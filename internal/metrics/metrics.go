// Package metrics exposes Prometheus collectors for the request-serving
// core: connection/pool backpressure, cache hit rate, and render latency.
// These are observability only — no metric here feeds back into request
// dispatch (§2 gives that role solely to the pool's pending counter).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumen_requests_total",
			Help: "Total number of requests served, by method and status.",
		},
		[]string{"method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lumen_request_duration_seconds",
			Help:    "Request handling duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lumen_active_connections",
			Help: "Number of live connections currently held by worker goroutines.",
		},
	)

	PoolPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lumen_pool_pending_jobs",
			Help: "Jobs submitted to the thread pool and not yet picked up by a worker.",
		},
	)

	PoolRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lumen_pool_rejected_total",
			Help: "Connections shed with 503 because the pool queue was full.",
		},
	)

	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumen_cache_hits_total",
			Help: "Cache lookups that found an entry (fresh or not), by cache name.",
		},
		[]string{"cache"},
	)

	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lumen_cache_misses_total",
			Help: "Cache lookups that found no entry, by cache name.",
		},
		[]string{"cache"},
	)

	ThemeRebuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lumen_theme_rebuilds_total",
			Help: "Number of times the theme environment was rebuilt.",
		},
	)

	RenderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lumen_render_duration_seconds",
			Help:    "Time taken to render a Markdown page end to end.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ActiveConnections,
		PoolPending,
		PoolRejectedTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		ThemeRebuildsTotal,
		RenderDuration,
	)
}

// Handler returns the Prometheus scrape handler, meant to be served on a
// side listener distinct from the content server (§2: the core's only
// routing is the filesystem URL mapping in §6).
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed wall time for histogram observations.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer { return &Timer{start: time.Now()} }

func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Duration() time.Duration { return time.Since(t.start) }
