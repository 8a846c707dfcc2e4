package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/registryx/repo-worker/pkg/digest"
	"github.com/registryx/repo-worker/pkg/health"
	"github.com/registryx/repo-worker/pkg/objectstore"
)

// HeadBlob implements HEAD /v2/<name>/blobs/<digest>.
func (h *Handlers) HeadBlob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	d, err := digest.Parse(vars["digest"])
	if err != nil {
		writeError(w, http.StatusBadRequest, codeDigestInvalid, "invalid digest")
		return
	}

	size, err := h.Store.StatBlob(r.Context(), d)
	if errors.Is(err, objectstore.ErrNotFound) {
		writeNotFound(w, codeBlobUnknown, "blob unknown")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeUnsupported, err.Error())
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Docker-Content-Digest", string(d))
	w.WriteHeader(http.StatusOK)
}

// GetBlob implements GET /v2/<name>/blobs/<digest>.
func (h *Handlers) GetBlob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	vars := mux.Vars(r)
	d, err := digest.Parse(vars["digest"])
	if err != nil {
		writeError(w, http.StatusBadRequest, codeDigestInvalid, "invalid digest")
		return
	}

	body, size, err := h.Store.GetBlob(r.Context(), d)
	if errors.Is(err, objectstore.ErrNotFound) {
		h.observe(health.ClassBlobGet, "error", start)
		writeNotFound(w, codeBlobUnknown, "blob unknown")
		return
	}
	if err != nil {
		h.observe(health.ClassBlobGet, "error", start)
		writeError(w, http.StatusInternalServerError, codeUnsupported, err.Error())
		return
	}
	defer body.Close()

	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Docker-Content-Digest", string(d))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body) //nolint:errcheck
	h.observe(health.ClassBlobGet, "ok", start)
}

// DeleteBlob implements DELETE /v2/<name>/blobs/<digest>.
func (h *Handlers) DeleteBlob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	d, err := digest.Parse(vars["digest"])
	if err != nil {
		writeError(w, http.StatusBadRequest, codeDigestInvalid, "invalid digest")
		return
	}

	if exists, err := h.Store.BlobExists(r.Context(), d); err != nil {
		writeError(w, http.StatusInternalServerError, codeUnsupported, err.Error())
		return
	} else if !exists {
		writeNotFound(w, codeBlobUnknown, "blob unknown")
		return
	}

	if err := h.Store.DeleteBlob(r.Context(), d); err != nil {
		writeError(w, http.StatusInternalServerError, codeUnsupported, err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// StartBlobUpload implements POST /v2/<name>/blobs/uploads/. With a body
// and ?digest=, it is a single-shot monolithic upload (201); otherwise it
// opens a chunked-upload session (202).
func (h *Handlers) StartBlobUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := mux.Vars(r)["name"]

	if digestParam := r.URL.Query().Get("digest"); digestParam != "" {
		d, err := digest.Parse(digestParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeDigestInvalid, "invalid digest")
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeUnsupported, "failed reading body")
			return
		}
		if err := h.Store.PutBlob(r.Context(), d, bytes.NewReader(body), int64(len(body))); err != nil {
			h.observe(health.ClassBlobPut, "error", start)
			if errors.Is(err, digest.ErrMismatch) {
				writeError(w, http.StatusBadRequest, codeDigestInvalid, "digest mismatch")
				return
			}
			writeError(w, http.StatusInternalServerError, codeUnsupported, err.Error())
			return
		}
		h.observe(health.ClassBlobPut, "ok", start)
		w.Header().Set("Location", fmt.Sprintf("/v2/%s/blobs/%s", name, d))
		w.Header().Set("Docker-Content-Digest", string(d))
		w.WriteHeader(http.StatusCreated)
		return
	}

	sess := h.Sessions.Create(name)
	w.Header().Set("Location", fmt.Sprintf("/v2/%s/blobs/uploads/%s", name, sess.id))
	w.Header().Set("Range", "0-0")
	w.Header().Set("Docker-Upload-UUID", sess.id)
	w.WriteHeader(http.StatusAccepted)
}

// PatchBlobUpload implements PATCH /v2/<name>/blobs/uploads/<uuid>,
// appending one chunk to the session.
func (h *Handlers) PatchBlobUpload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, uuid := vars["name"], vars["uuid"]

	chunk, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeUnsupported, "failed reading chunk")
		return
	}

	sess := h.Sessions.Append(uuid, chunk)
	if sess == nil {
		writeNotFound(w, codeBlobUnknown, "upload session unknown")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/v2/%s/blobs/uploads/%s", name, uuid))
	w.Header().Set("Range", fmt.Sprintf("0-%d", sess.offset-1))
	w.Header().Set("Docker-Upload-UUID", uuid)
	w.WriteHeader(http.StatusAccepted)
}

// PutBlobUpload implements PUT /v2/<name>/blobs/uploads/<uuid>?digest=<d>,
// finalizing the session: any trailing body is appended as the last
// chunk, the concatenation is verified against digest, and on success the
// blob is stored and the session discarded.
func (h *Handlers) PutBlobUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	vars := mux.Vars(r)
	name, uuid := vars["name"], vars["uuid"]

	digestParam := r.URL.Query().Get("digest")
	d, err := digest.Parse(digestParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeDigestInvalid, "invalid digest")
		return
	}

	sess := h.Sessions.Get(uuid)
	if sess == nil {
		writeNotFound(w, codeBlobUnknown, "upload session unknown")
		return
	}

	if final, err := io.ReadAll(r.Body); err == nil && len(final) > 0 {
		sess = h.Sessions.Append(uuid, final)
	}

	body := sess.body()
	if err := h.Store.PutBlob(r.Context(), d, bytes.NewReader(body), int64(len(body))); err != nil {
		h.observe(health.ClassBlobPut, "error", start)
		if errors.Is(err, digest.ErrMismatch) {
			writeError(w, http.StatusBadRequest, codeDigestInvalid, "digest mismatch")
			h.Sessions.Discard(uuid)
			return
		}
		writeError(w, http.StatusInternalServerError, codeUnsupported, err.Error())
		return
	}

	h.Sessions.Discard(uuid)
	h.observe(health.ClassBlobPut, "ok", start)
	w.Header().Set("Location", fmt.Sprintf("/v2/%s/blobs/%s", name, d))
	w.Header().Set("Docker-Content-Digest", string(d))
	w.WriteHeader(http.StatusCreated)
}

// DeleteBlobUpload implements DELETE /v2/<name>/blobs/uploads/<uuid>,
// discarding an in-progress upload session.
func (h *Handlers) DeleteBlobUpload(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]
	if sess := h.Sessions.Get(uuid); sess == nil {
		writeNotFound(w, codeBlobUnknown, "upload session unknown")
		return
	}
	h.Sessions.Discard(uuid)
	w.WriteHeader(http.StatusNoContent)
}

