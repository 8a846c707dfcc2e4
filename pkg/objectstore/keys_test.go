package objectstore

import (
	"testing"

	"github.com/registryx/repo-worker/pkg/digest"
)

func TestBlobKeyLayout(t *testing.T) {
	d := digest.FromBytes([]byte("hello"))
	hex := d.Encoded()
	want := "blobs/sha256/" + hex[:2] + "/" + hex
	if got := blobKey(d); got != want {
		t.Errorf("blobKey = %q, want %q", got, want)
	}
}

func TestManifestRevisionKeyLayout(t *testing.T) {
	d := digest.FromBytes([]byte("manifest"))
	want := "repositories/myrepo/_manifests/revisions/" + string(d) + "/content"
	if got := manifestRevisionKey("myrepo", d); got != want {
		t.Errorf("manifestRevisionKey = %q, want %q", got, want)
	}
}

func TestTagLinkKeyLayout(t *testing.T) {
	want := "repositories/myrepo/_manifests/tags/latest/link"
	if got := tagLinkKey("myrepo", "latest"); got != want {
		t.Errorf("tagLinkKey = %q, want %q", got, want)
	}
}

func TestChartKeyLayout(t *testing.T) {
	want := "charts/foo/foo-1.0.0.tgz"
	if got := chartKey("foo", "1.0.0"); got != want {
		t.Errorf("chartKey = %q, want %q", got, want)
	}
}

func TestCacheMetaKeyLayout(t *testing.T) {
	want := "cache/dockerhub/library/nginx/latest/meta.json"
	if got := cacheMetaKey("dockerhub", "library/nginx", "latest"); got != want {
		t.Errorf("cacheMetaKey = %q, want %q", got, want)
	}
}

func TestSplitChartFilename(t *testing.T) {
	cases := []struct {
		in      string
		name    string
		version string
		ok      bool
	}{
		{"foo-1.0.0", "foo", "1.0.0", true},
		{"my-app-2.3.4", "my-app", "2.3.4", true},
		{"noversion", "", "", false},
	}
	for _, c := range cases {
		name, version, ok := splitChartFilename(c.in)
		if ok != c.ok || name != c.name || version != c.version {
			t.Errorf("splitChartFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.in, name, version, ok, c.name, c.version, c.ok)
		}
	}
}
