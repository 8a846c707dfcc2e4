package helmrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/registryx/repo-worker/pkg/objectstore"
)

// Handlers holds the dependencies the Helm Chart Repository endpoints need.
type Handlers struct {
	Store *objectstore.Store
}

// New constructs Handlers.
func New(store *objectstore.Store) *Handlers {
	return &Handlers{Store: store}
}

// Index implements GET /index.yaml.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	body, err := BuildIndex(r.Context(), h.Store)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}

// DownloadChart implements GET /charts/<name>-<version>.tgz.
func (h *Handlers) DownloadChart(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	base := filename
	if len(base) > 4 && base[len(base)-4:] == ".tgz" {
		base = base[:len(base)-4]
	}
	name, version, ok := splitChartFilename(base)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "chart not found")
		return
	}

	body, err := h.Store.GetChart(r.Context(), name, version)
	if errors.Is(err, objectstore.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "chart not found")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}

// UploadChart implements POST /api/v1/charts: a multipart upload whose
// "chart" field carries the tarball bytes.
func (h *Handlers) UploadChart(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("chart")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing chart field")
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed reading chart")
		return
	}

	meta, err := extractChartYAML(body)
	if err != nil || meta.Name == "" || meta.Version == "" {
		writeJSONError(w, http.StatusBadRequest, "tarball missing name or version in Chart.yaml")
		return
	}

	if err := h.Store.PutChart(r.Context(), meta.Name, meta.Version, body); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(struct { //nolint:errcheck
		Saved   bool   `json:"saved"`
		Name    string `json:"name"`
		Version string `json:"version"`
	}{Saved: true, Name: meta.Name, Version: meta.Version})
}

// ListCharts implements GET /api/v1/charts, a listing endpoint keyed by
// (name, version).
func (h *Handlers) ListCharts(w http.ResponseWriter, r *http.Request) {
	refs, err := h.Store.ListCharts(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(refs) //nolint:errcheck
}

// DeleteChart implements DELETE /api/v1/charts/<name>/<version>.
func (h *Handlers) DeleteChart(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.Store.DeleteChart(r.Context(), vars["name"], vars["version"]); err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "chart not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// splitChartFilename splits "<name>-<version>" on the last hyphen that is
// followed by a digit, so chart names may themselves contain hyphens.
func splitChartFilename(base string) (name, version string, ok bool) {
	for i := len(base) - 1; i > 0; i-- {
		if base[i] == '-' && i+1 < len(base) && base[i+1] >= '0' && base[i+1] <= '9' {
			return base[:i], base[i+1:], true
		}
	}
	return "", "", false
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct { //nolint:errcheck
		Error string `json:"error"`
	}{Error: message})
}

// Router builds the route table for the Helm Chart Repository surface.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/index.yaml", h.Index).Methods("GET")
	r.HandleFunc("/charts/{filename}", h.DownloadChart).Methods("GET")
	r.HandleFunc("/api/v1/charts", h.UploadChart).Methods("POST")
	r.HandleFunc("/api/v1/charts", h.ListCharts).Methods("GET")
	r.HandleFunc("/api/v1/charts/{name}/{version}", h.DeleteChart).Methods("DELETE")
	return r
}
