package objectstore

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/minio/minio-go/v7"
)

// CacheMeta is the cache-metadata document for one (upstream, image, tag)
// tuple, per SPEC_FULL.md §3.
type CacheMeta struct {
	Digest          string `json:"digest"`
	Mutable         bool   `json:"mutable"`
	LastCheckEpoch  int64  `json:"last_check_epoch"`
	LastUpdateEpoch int64  `json:"last_updated_epoch"`
}

// GetCacheMeta reads the cache-metadata document for a proxied tag.
func (s *Store) GetCacheMeta(ctx context.Context, upstream, image, tag string) (*CacheMeta, error) {
	data, err := s.getObject(ctx, cacheMetaKey(upstream, image, tag))
	if err != nil {
		return nil, err
	}
	var meta CacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// PutCacheMeta writes the cache-metadata document. Callers must write the
// corresponding proxy manifest first — cache metadata is written after
// content, never before (SPEC_FULL.md §5 ordering guarantees).
func (s *Store) PutCacheMeta(ctx context.Context, upstream, image, tag string, meta *CacheMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, cacheMetaKey(upstream, image, tag),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/json",
		})
	return err
}

// GetProxyManifest reads the cached manifest bytes for a proxied tag.
func (s *Store) GetProxyManifest(ctx context.Context, upstream, image, tag string) ([]byte, error) {
	return s.getObject(ctx, proxyManifestKey(upstream, image, tag))
}

// PutProxyManifest stores the cached manifest bytes for a proxied tag.
func (s *Store) PutProxyManifest(ctx context.Context, upstream, image, tag string, body []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, proxyManifestKey(upstream, image, tag),
		bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{})
	return err
}
