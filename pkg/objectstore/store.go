// Package objectstore is the Object-Store Adapter: typed, content-
// addressable operations over an S3-compatible bucket. It is the only
// component that writes durable state; every key it touches follows the
// layout documented in SPEC_FULL.md §3.
package objectstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/registryx/repo-worker/pkg/config"
)

// ErrNotFound is returned by every read operation when the requested key
// does not exist, distinguished from transport errors per spec.
var ErrNotFound = errors.New("objectstore: not found")

// Store is the Object-Store Adapter. Safe for concurrent use.
type Store struct {
	client *minio.Client
	bucket string
}

// New constructs a Store from resolved configuration. It does not touch
// the network; call EnsureBucket once during startup.
func New(cfg *config.Config) (*Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: constructing client: %w", err)
	}
	return &Store{client: client, bucket: cfg.S3Bucket}, nil
}

// EnsureBucket creates the configured bucket if absent. Fatal at startup
// if it cannot be created or confirmed, per the Process Supervisor's
// error-handling policy.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("objectstore: checking bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		exists, existsErr := s.client.BucketExists(ctx, s.bucket)
		if existsErr == nil && exists {
			return nil
		}
		return fmt.Errorf("objectstore: creating bucket: %w", err)
	}
	return nil
}

// Ready reports whether the bucket is reachable, for /readyz.
func (s *Store) Ready(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("objectstore: bucket %q does not exist", s.bucket)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}
