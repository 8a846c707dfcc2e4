// Package registry implements the Registry Protocol: the OCI Distribution
// v2 HTTP surface over the Object-Store Adapter, with proxied reads
// dispatched to the Cache Controller.
package registry

import (
	"net/http"
	"time"

	"github.com/registryx/repo-worker/pkg/cache"
	"github.com/registryx/repo-worker/pkg/health"
	"github.com/registryx/repo-worker/pkg/objectstore"
)

// Handlers holds the dependencies every OCI endpoint needs.
type Handlers struct {
	Store         *objectstore.Store
	Cache         *cache.Controller
	Sessions      *SessionStore
	UpstreamNames map[string]bool
	Metrics       *health.Metrics
}

// New constructs Handlers. metrics may be nil, in which case per-class
// blob/manifest observations are skipped.
func New(store *objectstore.Store, controller *cache.Controller, upstreamNames map[string]bool, metrics *health.Metrics) *Handlers {
	return &Handlers{
		Store:         store,
		Cache:         controller,
		Sessions:      NewSessionStore(),
		UpstreamNames: upstreamNames,
		Metrics:       metrics,
	}
}

// observe records a blob/manifest-class observation if metrics were
// configured.
func (h *Handlers) observe(class, outcome string, start time.Time) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.Observe(class, outcome, time.Since(start))
}

// BaseCheck implements GET /v2/ — the API version probe every OCI client
// issues before anything else.
func (h *Handlers) BaseCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Docker-Distribution-Api-Version", "registry/2.0")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("{}")) //nolint:errcheck
}
