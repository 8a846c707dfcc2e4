package objectstore

import (
	"fmt"

	"github.com/registryx/repo-worker/pkg/digest"
)

// Key layout is byte-exact per spec — interoperability across layered
// deployments depends on it, so these helpers are the only place paths are
// constructed.

func blobKey(d digest.Digest) string {
	hex := d.Encoded()
	return fmt.Sprintf("blobs/%s/%s/%s", d.Algorithm(), hex[:2], hex)
}

func manifestRevisionKey(name string, d digest.Digest) string {
	return fmt.Sprintf("repositories/%s/_manifests/revisions/%s/content", name, d)
}

func tagLinkKey(name, tag string) string {
	return fmt.Sprintf("repositories/%s/_manifests/tags/%s/link", name, tag)
}

func tagLinkPrefix(name string) string {
	return fmt.Sprintf("repositories/%s/_manifests/tags/", name)
}

func chartKey(name, version string) string {
	return fmt.Sprintf("charts/%s/%s-%s.tgz", name, name, version)
}

func chartPrefix(name string) string {
	return fmt.Sprintf("charts/%s/", name)
}

func cacheMetaKey(upstream, image, tag string) string {
	return fmt.Sprintf("cache/%s/%s/%s/meta.json", upstream, image, tag)
}

func proxyManifestKey(upstream, image, tag string) string {
	return fmt.Sprintf("_proxy/%s/%s/manifests/%s", upstream, image, tag)
}
