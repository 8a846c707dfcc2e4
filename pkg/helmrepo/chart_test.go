package helmrepo

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"
)

func buildTarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Size: int64(len(content)), Mode: 0644}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("writing content: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	return buf.Bytes()
}

func TestExtractChartYAMLNested(t *testing.T) {
	tarball := buildTarball(t, map[string]string{
		"foo/Chart.yaml":  "name: foo\nversion: 1.0.0\ndescription: x\n",
		"foo/values.yaml": "replicas: 1\n",
	})

	meta, err := extractChartYAML(tarball)
	if err != nil {
		t.Fatalf("extractChartYAML: %v", err)
	}
	if meta.Name != "foo" || meta.Version != "1.0.0" || meta.Description != "x" {
		t.Errorf("got %+v", meta)
	}
	if meta.APIVersion != "v2" {
		t.Errorf("expected default apiVersion v2, got %q", meta.APIVersion)
	}
}

func TestExtractChartYAMLMissing(t *testing.T) {
	tarball := buildTarball(t, map[string]string{"foo/values.yaml": "replicas: 1\n"})
	if _, err := extractChartYAML(tarball); err != errNoChartYAML {
		t.Errorf("expected errNoChartYAML, got %v", err)
	}
}

func TestChartFilename(t *testing.T) {
	if got := chartFilename("foo", "1.0.0"); got != "/charts/foo-1.0.0.tgz" {
		t.Errorf("got %q", got)
	}
}
