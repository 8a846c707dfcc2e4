package objectstore

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/registryx/repo-worker/pkg/digest"
)

// BlobExists reports whether a blob with the given digest is present.
func (s *Store) BlobExists(ctx context.Context, d digest.Digest) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, blobKey(d), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// StatBlob returns a blob's size without reading its content.
func (s *Store) StatBlob(ctx context.Context, d digest.Digest) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, blobKey(d), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return info.Size, nil
}

// GetBlob returns a stream of the blob's bytes and its size.
func (s *Store) GetBlob(ctx context.Context, d digest.Digest) (io.ReadCloser, int64, error) {
	size, err := s.StatBlob(ctx, d)
	if err != nil {
		return nil, 0, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, blobKey(d), minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, err
	}
	return obj, size, nil
}

// PutBlob stores body under the blob key only after the computed digest
// matches want, per the digest-integrity invariant: a wrong-content blob
// must never be left reachable under the wrong key. Re-putting an
// existing digest is a no-op success (idempotent writes), verified up
// front via StatObject so repeated uploads don't re-stream the body
// through the network unnecessarily.
func (s *Store) PutBlob(ctx context.Context, want digest.Digest, body io.Reader, size int64) error {
	if exists, err := s.BlobExists(ctx, want); err != nil {
		return err
	} else if exists {
		io.Copy(io.Discard, body) //nolint:errcheck
		return nil
	}

	if size >= 0 {
		return s.putBlobKnownSize(ctx, want, body, size)
	}
	return s.putBlobStreaming(ctx, want, body)
}

// putBlobKnownSize verifies the full body before any of it reaches the
// object store. A known-length PutObject completes as soon as minio has
// read `size` bytes, so verifying only after that call would commit a
// wrong-content, correct-length body before the mismatch could abort it.
func (s *Store) putBlobKnownSize(ctx context.Context, want digest.Digest, body io.Reader, size int64) error {
	vr := digest.NewVerifyingReader(body, want)
	data, err := io.ReadAll(vr)
	if err != nil {
		return err
	}
	if verr := vr.Verify(); verr != nil {
		return verr
	}
	_, err = s.client.PutObject(ctx, s.bucket, blobKey(want), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

// putBlobStreaming verifies while streaming, for callers (the cache
// controller's background blob fetches) that don't know the size up
// front and would rather not buffer a potentially large layer in memory.
// An unknown-length PutObject must read its source to EOF to complete, so
// a mismatch detected at EOF can still abort the upload via the pipe
// error before PutObject returns successfully.
func (s *Store) putBlobStreaming(ctx context.Context, want digest.Digest, body io.Reader) error {
	vr := digest.NewVerifyingReader(body, want)

	r, w := io.Pipe()
	copyErr := make(chan error, 1)
	go func() {
		_, err := io.CopyBuffer(w, vr, make([]byte, 64*1024))
		if err != nil {
			w.CloseWithError(err)
			copyErr <- err
			return
		}
		if verr := vr.Verify(); verr != nil {
			w.CloseWithError(verr)
			copyErr <- verr
			return
		}
		w.Close()
		copyErr <- nil
	}()

	_, putErr := s.client.PutObject(ctx, s.bucket, blobKey(want), r, -1, minio.PutObjectOptions{})
	if streamErr := <-copyErr; streamErr != nil {
		return streamErr
	}
	return putErr
}

// DeleteBlob removes a blob. Deletion is the only way a blob's lifetime
// ends; there is no garbage collector (SPEC_FULL.md §9 Open Question i).
func (s *Store) DeleteBlob(ctx context.Context, d digest.Digest) error {
	return s.client.RemoveObject(ctx, s.bucket, blobKey(d), minio.RemoveObjectOptions{})
}
