// Package metrics exposes Prometheus instrumentation for the server.
//
// All methods are safe on a nil *Metrics, so services can be built
// without instrumentation in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inkcircle"

// Interaction actions.
const (
	ActionLike          = "like"
	ActionUnlike        = "unlike"
	ActionCommentAdd    = "comment_add"
	ActionCommentEdit   = "comment_edit"
	ActionCommentDelete = "comment_delete"
	ActionArchive       = "archive"
	ActionUnarchive     = "unarchive"
	ActionVisit         = "visit"
	ActionDownload      = "download"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpDuration   *prometheus.HistogramVec
	interactions   *prometheus.CounterVec
	downloads      prometheus.Counter
	storeConflicts *prometheus.CounterVec
	rateLimited    *prometheus.CounterVec
	blobFailures   *prometheus.CounterVec
}

// New registers all collectors, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		interactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Successful interaction operations by action.",
		}, []string{"action"}),
		downloads: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "book_downloads_total",
			Help:      "Download counter increments across all books.",
		}),
		storeConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_conflict_retries_total",
			Help:      "Read-modify-write attempts lost to a concurrent writer.",
		}, []string{"entity"}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate limiter.",
		}, []string{"limiter"}),
		blobFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_failures_total",
			Help:      "Failed blob store calls by operation.",
		}, []string{"op"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Interaction counts a successful interaction.
func (m *Metrics) Interaction(action string) {
	if m == nil {
		return
	}
	m.interactions.WithLabelValues(action).Inc()
	if action == ActionDownload {
		m.downloads.Inc()
	}
}

// StoreConflict counts a lost optimistic transaction. It matches the
// badgerdb.Options.OnConflict signature.
func (m *Metrics) StoreConflict(entity string) {
	if m == nil {
		return
	}
	m.storeConflicts.WithLabelValues(entity).Inc()
}

// RateLimited counts a rejected request.
func (m *Metrics) RateLimited(limiter string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(limiter).Inc()
}

// BlobFailure counts a failed blob store call.
func (m *Metrics) BlobFailure(op string) {
	if m == nil {
		return
	}
	m.blobFailures.WithLabelValues(op).Inc()
}
