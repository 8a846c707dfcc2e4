package registry

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/registryx/repo-worker/pkg/cache"
	"github.com/registryx/repo-worker/pkg/health"
	"github.com/registryx/repo-worker/pkg/objectstore"
)

// manifestAccept is the Content-Type advertised on local manifest GET/HEAD;
// real clients send an Accept list and this registry returns whatever was
// stored, so the header is informational only.
const manifestAccept = ocispec.MediaTypeImageManifest

// HeadManifest implements HEAD /v2/<name>/manifests/<reference>. Local
// storage is always consulted first; only a local miss falls through to
// the Cache Controller, so a locally-pushed manifest always wins over an
// implicit proxy resolution of the same name.
func (h *Handlers) HeadManifest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, ref := vars["name"], vars["reference"]

	content, d, err := h.Store.GetManifest(r.Context(), name, ref)
	if err == nil {
		w.Header().Set("Content-Type", manifestAccept)
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Header().Set("Docker-Content-Digest", string(d))
		w.WriteHeader(http.StatusOK)
		return
	}
	if !errors.Is(err, objectstore.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, codeUnsupported, err.Error())
		return
	}

	if upstreamName, image, proxied := resolveProxy(name, h.UpstreamNames); proxied {
		manifest, err := h.Cache.GetManifest(r.Context(), upstreamName, image, ref)
		if err != nil {
			writeProxyErr(w, err)
			return
		}
		contentType := manifest.ContentType
		if contentType == "" {
			contentType = manifestAccept
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(manifest.Content)))
		w.Header().Set("Docker-Content-Digest", manifest.Digest)
		w.WriteHeader(http.StatusOK)
		return
	}

	writeNotFound(w, codeManifestUnknown, "manifest unknown")
}

// GetManifest implements GET /v2/<name>/manifests/<reference>. Local
// storage is always consulted first; only a local miss falls through to
// the Cache Controller, so a locally-pushed manifest always wins over an
// implicit proxy resolution of the same name.
func (h *Handlers) GetManifest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	vars := mux.Vars(r)
	name, ref := vars["name"], vars["reference"]

	content, d, err := h.Store.GetManifest(r.Context(), name, ref)
	if err == nil {
		w.Header().Set("Content-Type", manifestAccept)
		w.Header().Set("Docker-Content-Digest", string(d))
		w.WriteHeader(http.StatusOK)
		w.Write(content) //nolint:errcheck
		h.observe(health.ClassManifestGet, "ok", start)
		return
	}
	if !errors.Is(err, objectstore.ErrNotFound) {
		h.observe(health.ClassManifestGet, "error", start)
		writeError(w, http.StatusInternalServerError, codeUnsupported, err.Error())
		return
	}

	if upstreamName, image, proxied := resolveProxy(name, h.UpstreamNames); proxied {
		manifest, err := h.Cache.GetManifest(r.Context(), upstreamName, image, ref)
		if err != nil {
			h.observe(health.ClassManifestGet, "error", start)
			writeProxyErr(w, err)
			return
		}
		contentType := manifest.ContentType
		if contentType == "" {
			contentType = manifestAccept
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Docker-Content-Digest", manifest.Digest)
		w.WriteHeader(http.StatusOK)
		w.Write(manifest.Content) //nolint:errcheck
		h.observe(health.ClassManifestGet, "ok", start)
		return
	}

	h.observe(health.ClassManifestGet, "error", start)
	writeNotFound(w, codeManifestUnknown, "manifest unknown")
}

// PutManifest implements PUT /v2/<name>/manifests/<reference>. Writes are
// never proxied: they always target local storage under the literal name,
// regardless of whether that name would otherwise resolve to an upstream.
func (h *Handlers) PutManifest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	vars := mux.Vars(r)
	name, ref := vars["name"], vars["reference"]

	if !validName(name) {
		writeError(w, http.StatusBadRequest, codeNameInvalid, "invalid repository name")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeUnsupported, "failed reading body")
		return
	}

	d, err := h.Store.PutManifest(r.Context(), name, ref, body)
	if err != nil {
		h.observe(health.ClassManifestPut, "error", start)
		writeError(w, http.StatusInternalServerError, codeUnsupported, err.Error())
		return
	}

	h.observe(health.ClassManifestPut, "ok", start)
	w.Header().Set("Location", "/v2/"+name+"/manifests/"+ref)
	w.Header().Set("Docker-Content-Digest", string(d))
	w.WriteHeader(http.StatusCreated)
}

// DeleteManifest implements DELETE /v2/<name>/manifests/<reference>. Like
// PutManifest, this always targets local storage under the literal name.
func (h *Handlers) DeleteManifest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, ref := vars["name"], vars["reference"]

	if err := h.Store.DeleteManifest(r.Context(), name, ref); err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			writeNotFound(w, codeManifestUnknown, "manifest unknown")
			return
		}
		writeError(w, http.StatusInternalServerError, codeUnsupported, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeProxyErr(w http.ResponseWriter, err error) {
	if errors.Is(err, cache.ErrNotFound) {
		writeNotFound(w, codeManifestUnknown, "manifest unknown")
		return
	}
	writeError(w, http.StatusBadGateway, codeUnsupported, err.Error())
}
