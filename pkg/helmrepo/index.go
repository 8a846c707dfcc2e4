package helmrepo

import (
	"context"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/registryx/repo-worker/pkg/objectstore"
)

// indexEntry is one version listed under a chart name in index.yaml.
type indexEntry struct {
	APIVersion  string   `yaml:"apiVersion"`
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description,omitempty"`
	AppVersion  string   `yaml:"appVersion,omitempty"`
	Icon        string   `yaml:"icon,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty"`
	Home        string   `yaml:"home,omitempty"`
	Sources     []string `yaml:"sources,omitempty"`
	URLs        []string `yaml:"urls"`
	Created     string   `yaml:"created"`
}

// index is the top-level index.yaml document.
type index struct {
	APIVersion string                  `yaml:"apiVersion"`
	Generated  string                  `yaml:"generated"`
	Entries    map[string][]indexEntry `yaml:"entries"`
}

// BuildIndex enumerates every stored chart and assembles index.yaml,
// opening each tarball to recover its Chart.yaml metadata. Tarballs that
// fail to parse are skipped rather than failing the whole index.
func BuildIndex(ctx context.Context, store *objectstore.Store) ([]byte, error) {
	refs, err := store.ListCharts(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	idx := index{
		APIVersion: "v1",
		Generated:  now,
		Entries:    make(map[string][]indexEntry),
	}

	for _, ref := range refs {
		tarball, err := store.GetChart(ctx, ref.Name, ref.Version)
		if err != nil {
			continue
		}
		meta, err := extractChartYAML(tarball)
		if err != nil {
			continue
		}

		entry := indexEntry{
			APIVersion:  meta.APIVersion,
			Name:        meta.Name,
			Version:     meta.Version,
			Description: meta.Description,
			AppVersion:  meta.AppVersion,
			Icon:        meta.Icon,
			Keywords:    meta.Keywords,
			Home:        meta.Home,
			Sources:     meta.Sources,
			URLs:        []string{chartFilename(ref.Name, ref.Version)},
			Created:     now,
		}
		idx.Entries[ref.Name] = append(idx.Entries[ref.Name], entry)
	}

	return yaml.Marshal(idx)
}
