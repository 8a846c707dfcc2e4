// Package digest provides the canonical content-address type and a
// streaming verifier used on every blob and manifest write.
package digest

import (
	"errors"
	"io"
	"strings"

	godigest "github.com/opencontainers/go-digest"
)

// ErrMismatch is returned when a streamed body's computed digest does not
// match the digest it was declared to have.
var ErrMismatch = errors.New("digest: content does not match declared digest")

// ErrUnsupportedAlgorithm is returned when a reference names a digest
// algorithm other than sha256.
var ErrUnsupportedAlgorithm = errors.New("digest: unsupported algorithm")

// Digest is a content address of the form "sha256:<hex>".
type Digest = godigest.Digest

// Parse validates a digest string and returns it as a Digest. Only sha256
// is accepted; this is enforced at the protocol layer before any store
// access, per spec.
func Parse(s string) (Digest, error) {
	if i := strings.Index(s, ":"); i > 0 && godigest.Algorithm(s[:i]) != godigest.SHA256 {
		return "", ErrUnsupportedAlgorithm
	}
	d, err := godigest.Parse(s)
	if err != nil {
		return "", err
	}
	if d.Algorithm() != godigest.SHA256 {
		return "", ErrUnsupportedAlgorithm
	}
	return d, nil
}

// FromBytes computes the canonical digest of an in-memory buffer.
func FromBytes(b []byte) Digest {
	return godigest.SHA256.FromBytes(b)
}

// VerifyingReader wraps a reader, computing its digest as bytes are read.
// After the underlying reader is fully consumed, Verify confirms the
// running digest matches want.
type VerifyingReader struct {
	r        io.Reader
	verifier godigest.Verifier
	want     Digest
}

// NewVerifyingReader returns a reader that hashes every byte read from r
// under sha256, to be checked against want once the stream is exhausted.
func NewVerifyingReader(r io.Reader, want Digest) *VerifyingReader {
	return &VerifyingReader{
		r:        r,
		verifier: want.Verifier(),
		want:     want,
	}
}

func (v *VerifyingReader) Read(p []byte) (int, error) {
	n, err := v.r.Read(p)
	if n > 0 {
		v.verifier.Write(p[:n])
	}
	return n, err
}

// Verify reports whether the bytes read so far match the declared digest.
// Call only after the stream has been fully consumed (EOF reached).
func (v *VerifyingReader) Verify() error {
	if !v.verifier.Verified() {
		return ErrMismatch
	}
	return nil
}
