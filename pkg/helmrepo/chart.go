// Package helmrepo implements the Helm Chart Repository API v1 surface:
// index.yaml generation from stored chart tarballs, chart download, and
// chart upload with Chart.yaml extraction.
package helmrepo

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"path"
	"strings"

	"go.yaml.in/yaml/v3"
)

// chartMetadata is the subset of Chart.yaml fields the index cares about.
type chartMetadata struct {
	APIVersion  string   `yaml:"apiVersion"`
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description,omitempty"`
	AppVersion  string   `yaml:"appVersion,omitempty"`
	Icon        string   `yaml:"icon,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`
	Home        string   `yaml:"home,omitempty"`
	Sources     []string `yaml:"sources,omitempty"`
}

// errNoChartYAML is returned when a tarball has no Chart.yaml entry.
var errNoChartYAML = errors.New("helmrepo: tarball has no Chart.yaml")

// extractChartYAML opens a gzipped tarball and returns the parsed contents
// of the entry whose archive path is literally "Chart.yaml" or ends in
// "/Chart.yaml".
func extractChartYAML(tarball []byte) (*chartMetadata, error) {
	gz, err := gzip.NewReader(bytes.NewReader(tarball))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, errNoChartYAML
		}
		if err != nil {
			return nil, err
		}
		name := hdr.Name
		if name != "Chart.yaml" && !strings.HasSuffix(name, "/Chart.yaml") {
			continue
		}
		raw, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		var meta chartMetadata
		if err := yaml.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
		if meta.APIVersion == "" {
			meta.APIVersion = "v2"
		}
		return &meta, nil
	}
}

// chartFilename is the download URL path "/charts/<name>-<version>.tgz"
// for a chart entry.
func chartFilename(name, version string) string {
	return path.Join("/charts", name+"-"+version+".tgz")
}
