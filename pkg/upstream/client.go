// Package upstream is the Upstream Client: one HTTP client per configured
// upstream registry, performing the Docker token-exchange challenge
// dance and exposing HEAD/GET for manifests and streaming GET for blobs.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/registryx/repo-worker/pkg/config"
)

// ErrNotFound is returned when the upstream responds 404 for a manifest
// or blob lookup.
var ErrNotFound = errors.New("upstream: not found")

// ErrAuthFailed is returned when a second 401 follows a token exchange —
// a terminal error per spec.md §4.4.
var ErrAuthFailed = errors.New("upstream: authentication failed")

const manifestAccept = "application/vnd.docker.distribution.manifest.v2+json, " +
	"application/vnd.docker.distribution.manifest.list.v2+json, " +
	ocispec.MediaTypeImageManifest + ", " +
	ocispec.MediaTypeImageIndex

// Client talks to one upstream registry.
type Client struct {
	name string
	base string
	cfg  config.Upstream

	http *http.Client

	mu         sync.Mutex
	tokenCache map[string]cachedToken
}

type cachedToken struct {
	token   string
	expires time.Time
}

// New constructs a Client for one configured upstream, with the same
// transport-timeout conventions used for pull-through proxying elsewhere
// in the ecosystem: bounded dial/handshake/response timeouts and a
// moderate connection pool.
func New(u config.Upstream) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Client{
		name:       u.Name,
		base:       strings.TrimSuffix(u.URL, "/"),
		cfg:        u,
		http:       &http.Client{Transport: transport, Timeout: 30 * time.Second},
		tokenCache: make(map[string]cachedToken),
	}
}

// Manifest is the result of a successful manifest fetch.
type Manifest struct {
	Content     []byte
	Digest      string
	ContentType string
}

// HeadManifest returns the manifest digest without fetching its body.
func (c *Client) HeadManifest(ctx context.Context, image, ref string) (string, error) {
	url := fmt.Sprintf("%s/v2/%s/manifests/%s", c.base, image, ref)
	resp, err := c.doWithAuth(ctx, http.MethodHead, url, manifestScope(image))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Header.Get("Docker-Content-Digest"), nil
	case http.StatusNotFound:
		return "", ErrNotFound
	default:
		return "", fmt.Errorf("upstream: unexpected status %d for HEAD manifest", resp.StatusCode)
	}
}

// GetManifest fetches a manifest's bytes, digest, and content type.
func (c *Client) GetManifest(ctx context.Context, image, ref string) (*Manifest, error) {
	url := fmt.Sprintf("%s/v2/%s/manifests/%s", c.base, image, ref)
	resp, err := c.doWithAuth(ctx, http.MethodGet, url, manifestScope(image))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return &Manifest{
			Content:     body,
			Digest:      resp.Header.Get("Docker-Content-Digest"),
			ContentType: resp.Header.Get("Content-Type"),
		}, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("upstream: unexpected status %d for GET manifest", resp.StatusCode)
	}
}

// GetBlob streams a blob's bytes from upstream. Callers must close the
// returned reader.
func (c *Client) GetBlob(ctx context.Context, image, digest string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/v2/%s/blobs/%s", c.base, image, digest)
	resp, err := c.doWithAuth(ctx, http.MethodGet, url, manifestScope(image))
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("upstream: unexpected status %d for GET blob", resp.StatusCode)
	}
}

func manifestScope(image string) string {
	return fmt.Sprintf("repository:%s:pull", image)
}
