package cache

import "encoding/json"

// descriptor is the subset of an OCI/Docker content descriptor needed to
// enumerate the blobs a manifest references.
type descriptor struct {
	Digest string `json:"digest"`
}

// manifestRefs is the subset of an image manifest's shape needed to list
// its config and layer blobs, shared across the Docker v2 and OCI v1
// manifest media types (both use "config" and "layers" with this shape).
type manifestRefs struct {
	Config descriptor   `json:"config"`
	Layers []descriptor `json:"layers"`
}

// referencedBlobDigests best-effort parses a manifest body (ignoring
// image indexes / manifest lists, which reference further manifests
// rather than blobs) and returns every blob digest it names.
func referencedBlobDigests(body []byte) []string {
	var m manifestRefs
	if err := json.Unmarshal(body, &m); err != nil {
		return nil
	}
	var digests []string
	if m.Config.Digest != "" {
		digests = append(digests, m.Config.Digest)
	}
	for _, l := range m.Layers {
		if l.Digest != "" {
			digests = append(digests, l.Digest)
		}
	}
	return digests
}
