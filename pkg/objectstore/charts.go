package objectstore

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ChartRef identifies a stored chart tarball by name and version, as
// parsed from its object key.
type ChartRef struct {
	Name    string
	Version string
}

// GetChart returns a stored chart tarball's bytes.
func (s *Store) GetChart(ctx context.Context, name, version string) ([]byte, error) {
	return s.getObject(ctx, chartKey(name, version))
}

// PutChart stores a chart tarball under its computed key. Re-uploading the
// same name/version overwrites the previous tarball.
func (s *Store) PutChart(ctx context.Context, name, version string, body []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, chartKey(name, version),
		bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
			ContentType: "application/gzip",
		})
	return err
}

// DeleteChart removes a stored chart tarball.
func (s *Store) DeleteChart(ctx context.Context, name, version string) error {
	if exists, err := s.chartExists(ctx, name, version); err != nil {
		return err
	} else if !exists {
		return ErrNotFound
	}
	return s.client.RemoveObject(ctx, s.bucket, chartKey(name, version), minio.RemoveObjectOptions{})
}

func (s *Store) chartExists(ctx context.Context, name, version string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, chartKey(name, version), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListCharts enumerates every stored chart by parsing "<name>-<version>.tgz"
// out of each object key under charts/<name>/.
func (s *Store) ListCharts(ctx context.Context) ([]ChartRef, error) {
	var refs []ChartRef
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: "charts/", Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if !strings.HasSuffix(obj.Key, ".tgz") {
			continue
		}
		base := obj.Key[strings.LastIndex(obj.Key, "/")+1:]
		base = strings.TrimSuffix(base, ".tgz")
		name, version, ok := splitChartFilename(base)
		if !ok {
			continue
		}
		refs = append(refs, ChartRef{Name: name, Version: version})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Name != refs[j].Name {
			return refs[i].Name < refs[j].Name
		}
		return refs[i].Version < refs[j].Version
	})
	return refs, nil
}

// splitChartFilename splits "<name>-<version>" on the last hyphen that
// precedes something starting with a digit, matching Helm's own
// convention for chart filenames (names may themselves contain hyphens).
func splitChartFilename(base string) (name, version string, ok bool) {
	for i := len(base) - 1; i > 0; i-- {
		if base[i] == '-' && i+1 < len(base) && isDigit(base[i+1]) {
			return base[:i], base[i+1:], true
		}
	}
	return "", "", false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
