package objectstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/registryx/repo-worker/pkg/digest"
)

// GetManifest resolves ref (a tag or a digest) to manifest bytes and its
// digest, transparently following the tag-link indirection when ref is
// not itself a digest.
func (s *Store) GetManifest(ctx context.Context, name, ref string) ([]byte, digest.Digest, error) {
	d, err := digest.Parse(ref)
	if err != nil {
		// ref is a tag: resolve the link first.
		linkBytes, getErr := s.getObject(ctx, tagLinkKey(name, ref))
		if getErr != nil {
			return nil, "", getErr
		}
		d, err = digest.Parse(strings.TrimSpace(string(linkBytes)))
		if err != nil {
			return nil, "", err
		}
	}

	content, err := s.getObject(ctx, manifestRevisionKey(name, d))
	if err != nil {
		return nil, "", err
	}
	return content, d, nil
}

// PutManifest stores manifest bytes content-addressably and, when ref is a
// tag rather than a digest, additionally writes the tag-link after the
// content write (write order matters: a reader observing the new link
// must already be able to find the content).
func (s *Store) PutManifest(ctx context.Context, name, ref string, body []byte) (digest.Digest, error) {
	d := digest.FromBytes(body)

	_, err := s.client.PutObject(ctx, s.bucket, manifestRevisionKey(name, d),
		bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{})
	if err != nil {
		return "", err
	}

	if _, parseErr := digest.Parse(ref); parseErr != nil {
		// ref is a tag: write the link after the content.
		_, err := s.client.PutObject(ctx, s.bucket, tagLinkKey(name, ref),
			strings.NewReader(string(d)), int64(len(d)), minio.PutObjectOptions{})
		if err != nil {
			return "", err
		}
	}

	return d, nil
}

// DeleteManifest removes a manifest reference. A delete by tag removes
// only the tag-link, leaving the content-addressed revision (and any
// other tags pointing at it) intact. A delete by digest removes the
// revision itself.
func (s *Store) DeleteManifest(ctx context.Context, name, ref string) error {
	if d, err := digest.Parse(ref); err == nil {
		return s.client.RemoveObject(ctx, s.bucket, manifestRevisionKey(name, d), minio.RemoveObjectOptions{})
	}
	return s.client.RemoveObject(ctx, s.bucket, tagLinkKey(name, ref), minio.RemoveObjectOptions{})
}

// ListTags returns every tag with a link under the given repository,
// lexicographically sorted.
func (s *Store) ListTags(ctx context.Context, name string) ([]string, error) {
	prefix := tagLinkPrefix(name)
	var tags []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if !strings.HasSuffix(obj.Key, "/link") {
			continue
		}
		rest := strings.TrimPrefix(obj.Key, prefix)
		tag := strings.TrimSuffix(rest, "/link")
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags, nil
}

// ListRepositories enumerates every repository name that has at least one
// manifest, lexicographically sorted.
func (s *Store) ListRepositories(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: "repositories/", Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		rest := strings.TrimPrefix(obj.Key, "repositories/")
		idx := strings.Index(rest, "/_manifests/")
		if idx < 0 {
			continue
		}
		seen[rest[:idx]] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// getObject is a small helper shared by manifest/chart/cache-meta reads:
// it maps a missing key to ErrNotFound and otherwise returns the full
// object body.
func (s *Store) getObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	// StatObject surfaces NoSuchKey eagerly; GetObject alone defers the
	// error until the first Read, so stat first to return ErrNotFound
	// cleanly instead of a confusing read error.
	if _, err := obj.Stat(); err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}
	return data, nil
}
