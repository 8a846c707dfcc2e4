package registry

import (
	"github.com/gorilla/mux"
)

// Router builds the full OCI Distribution v2 route table over h.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/v2/", h.BaseCheck).Methods("GET")
	r.HandleFunc("/v2/_catalog", h.Catalog).Methods("GET")

	r.HandleFunc("/v2/{name:.+}/tags/list", h.ListTags).Methods("GET")

	r.HandleFunc("/v2/{name:.+}/manifests/{reference}", h.HeadManifest).Methods("HEAD")
	r.HandleFunc("/v2/{name:.+}/manifests/{reference}", h.GetManifest).Methods("GET")
	r.HandleFunc("/v2/{name:.+}/manifests/{reference}", h.PutManifest).Methods("PUT")
	r.HandleFunc("/v2/{name:.+}/manifests/{reference}", h.DeleteManifest).Methods("DELETE")

	r.HandleFunc("/v2/{name:.+}/blobs/{digest}", h.HeadBlob).Methods("HEAD")
	r.HandleFunc("/v2/{name:.+}/blobs/{digest}", h.GetBlob).Methods("GET")
	r.HandleFunc("/v2/{name:.+}/blobs/{digest}", h.DeleteBlob).Methods("DELETE")

	r.HandleFunc("/v2/{name:.+}/blobs/uploads/", h.StartBlobUpload).Methods("POST")
	r.HandleFunc("/v2/{name:.+}/blobs/uploads/{uuid}", h.PatchBlobUpload).Methods("PATCH")
	r.HandleFunc("/v2/{name:.+}/blobs/uploads/{uuid}", h.PutBlobUpload).Methods("PUT")
	r.HandleFunc("/v2/{name:.+}/blobs/uploads/{uuid}", h.DeleteBlobUpload).Methods("DELETE")

	return r
}
