// Package health implements the Health & Observability surface: liveness,
// readiness against the object store, and Prometheus metrics keyed by
// endpoint class.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/registryx/repo-worker/pkg/objectstore"
)

// Metrics is the set of named counters and histograms Observe writes to.
type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

// NewMetrics registers the request-count and latency-histogram families
// against reg and returns the handle used to record observations.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repo_worker_requests_total",
			Help: "Total requests handled, by endpoint class and outcome.",
		}, []string{"class", "outcome"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "repo_worker_request_duration_seconds",
			Help:    "Request latency in seconds, by endpoint class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"class"}),
	}
	reg.MustRegister(m.Requests, m.Latency)
	return m
}

// Endpoint classes named in spec.md §4.8.
const (
	ClassBlobGet         = "blob_get"
	ClassBlobPut         = "blob_put"
	ClassManifestGet     = "manifest_get"
	ClassManifestPut     = "manifest_put"
	ClassProxyHit        = "proxy_hit"
	ClassProxyMiss       = "proxy_miss"
	ClassProxyRevalidate = "proxy_revalidate"
)

// Observe records one request of the given class: outcome is "ok" or
// "error", and duration is the elapsed handling time.
func (m *Metrics) Observe(class, outcome string, duration time.Duration) {
	m.Requests.WithLabelValues(class, outcome).Inc()
	m.Latency.WithLabelValues(class).Observe(duration.Seconds())
}

// Handlers wires /healthz, /readyz, and /metrics.
type Handlers struct {
	store   *objectstore.Store
	metrics *Metrics
	ready   bool
}

// New constructs Handlers. ready should flip to true only once the
// Process Supervisor has finished wiring every component.
func New(store *objectstore.Store, metrics *Metrics) *Handlers {
	return &Handlers{store: store, metrics: metrics}
}

// MarkReady flips the liveness gate that /healthz checks.
func (h *Handlers) MarkReady() {
	h.ready = true
}

// Healthz implements GET /healthz: 200 unconditionally once component
// wiring has completed, per spec.md §4.8.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if !h.ready {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(struct { //nolint:errcheck
		Status string `json:"status"`
	}{Status: "ok"})
}

// Readyz implements GET /readyz: 200 only after a successful HEAD against
// the object-store bucket.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ready(r.Context()); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(struct { //nolint:errcheck
			Status string `json:"status"`
			Reason string `json:"reason"`
		}{Status: "unavailable", Reason: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(struct { //nolint:errcheck
		Status string `json:"status"`
	}{Status: "ready"})
}

// MetricsHandler returns the promhttp handler for GET /metrics.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
