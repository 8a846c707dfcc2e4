package registry

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
)

// ListTags implements GET /v2/<name>/tags/list, with optional ?n= and
// ?last= pagination over the lexicographically sorted tag list.
func (h *Handlers) ListTags(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	tags, err := h.Store.ListTags(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeUnsupported, err.Error())
		return
	}
	if len(tags) == 0 {
		writeNotFound(w, codeNameInvalid, "repository unknown")
		return
	}

	page, next := paginate(tags, r.URL.Query().Get("n"), r.URL.Query().Get("last"))
	if next != "" {
		w.Header().Set("Link", linkHeader(r.URL.Path, next, r.URL.Query().Get("n")))
	}
	writeJSON(w, struct {
		Name string   `json:"name"`
		Tags []string `json:"tags"`
	}{Name: name, Tags: page})
}

// Catalog implements GET /v2/_catalog, with the same ?n=/?last= pagination
// scheme as ListTags, applied to the repository name list.
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	repos, err := h.Store.ListRepositories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeUnsupported, err.Error())
		return
	}

	page, next := paginate(repos, r.URL.Query().Get("n"), r.URL.Query().Get("last"))
	if next != "" {
		w.Header().Set("Link", linkHeader(r.URL.Path, next, r.URL.Query().Get("n")))
	}
	writeJSON(w, struct {
		Repositories []string `json:"repositories"`
	}{Repositories: page})
}

// paginate returns the slice of items strictly after last (or from the
// start, if last is empty), capped at n entries, plus the value to use as
// the next page's ?last= (empty if this is the final page). items must
// already be sorted.
func paginate(items []string, n, last string) (page []string, next string) {
	start := 0
	if last != "" {
		start = sort.SearchStrings(items, last)
		if start < len(items) && items[start] == last {
			start++
		}
	}
	if start >= len(items) {
		return nil, ""
	}
	items = items[start:]

	limit := len(items)
	if n != "" {
		if parsed, err := strconv.Atoi(n); err == nil && parsed >= 0 && parsed < limit {
			limit = parsed
		}
	}

	page = items[:limit]
	if limit < len(items) && len(page) > 0 {
		next = page[len(page)-1]
	}
	return page, next
}

func linkHeader(path, last, n string) string {
	q := "?last=" + last
	if n != "" {
		q += "&n=" + n
	}
	return "<" + path + q + ">; rel=\"next\""
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
