// Package inventory implements the read-only, token-gated surface an
// external marketplace service polls for repository and chart listings.
package inventory

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/registryx/repo-worker/pkg/objectstore"
)

// Handlers holds the dependencies the inventory endpoints need.
type Handlers struct {
	Store *objectstore.Store
}

// New constructs Handlers.
func New(store *objectstore.Store) *Handlers {
	return &Handlers{Store: store}
}

// repositoryEntry is one repository listed by Repositories, with its tags
// eagerly resolved.
type repositoryEntry struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// Repositories implements GET /api/v1/inventory/repositories.
func (h *Handlers) Repositories(w http.ResponseWriter, r *http.Request) {
	names, err := h.Store.ListRepositories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := make([]repositoryEntry, 0, len(names))
	for _, name := range names {
		tags, err := h.Store.ListTags(r.Context(), name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		entries = append(entries, repositoryEntry{Name: name, Tags: tags})
	}

	writeJSON(w, struct {
		Repositories []repositoryEntry `json:"repositories"`
	}{Repositories: entries})
}

// Charts implements GET /api/v1/inventory/charts.
func (h *Handlers) Charts(w http.ResponseWriter, r *http.Request) {
	refs, err := h.Store.ListCharts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, struct {
		Charts []objectstore.ChartRef `json:"charts"`
	}{Charts: refs})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct { //nolint:errcheck
		Error string `json:"error"`
	}{Error: message})
}

// Router builds the route table for the inventory surface. The caller is
// expected to wrap it with the Token Validator's middleware.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/inventory/repositories", h.Repositories).Methods("GET")
	r.HandleFunc("/api/v1/inventory/charts", h.Charts).Methods("GET")
	return r
}
