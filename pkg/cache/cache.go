// Package cache is the Cache Controller: mutable/immutable tag
// classification, cache-metadata bookkeeping, and the stale-while-
// revalidate decision with single-flight de-duplication of background
// refreshes.
package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/registryx/repo-worker/pkg/digest"
	"github.com/registryx/repo-worker/pkg/health"
	"github.com/registryx/repo-worker/pkg/objectstore"
	"github.com/registryx/repo-worker/pkg/upstream"
)

// ErrNotFound is returned when neither the cache nor the upstream has the
// requested manifest.
var ErrNotFound = errors.New("cache: not found")

// Manifest is a fetched-or-cached manifest result.
type Manifest = upstream.Manifest

// UpstreamClient is the subset of *upstream.Client the Cache Controller
// calls. *upstream.Client satisfies this interface structurally.
type UpstreamClient interface {
	HeadManifest(ctx context.Context, image, ref string) (string, error)
	GetManifest(ctx context.Context, image, ref string) (*upstream.Manifest, error)
	GetBlob(ctx context.Context, image, digest string) (io.ReadCloser, error)
}

// UpstreamLookup resolves a configured upstream by name, or nil if
// unconfigured.
type UpstreamLookup func(name string) UpstreamClient

// blobSemaphoreSize bounds concurrent background blob fetches during a
// manifest fill, per spec.md §4.5.1.
const blobSemaphoreSize = 5

// flightGroup de-duplicates a keyed background task: at most one fn for a
// given key runs at a time; duplicate callers while one is in flight are
// dropped without running fn again.
type flightGroup interface {
	Do(key string, fn func())
}

// inProcessGroup adapts golang.org/x/sync/singleflight.Group to
// flightGroup, discarding the shared-result semantics this package
// doesn't need (background refreshes are fire-and-forget).
type inProcessGroup struct {
	g singleflight.Group
}

func (g *inProcessGroup) Do(key string, fn func()) {
	g.g.Do(key, func() (interface{}, error) { //nolint:errcheck
		fn()
		return nil, nil
	})
}

// Controller is the Cache Controller.
type Controller struct {
	store    *objectstore.Store
	lookup   UpstreamLookup
	patterns []string
	metrics  *health.Metrics

	group flightGroup

	blobSem chan struct{}
}

// New constructs a Controller backed by an in-process singleflight.Group.
// mutablePatterns is the configured glob list (MUTABLE_TAG_PATTERNS). metrics
// may be nil, in which case proxy hit/miss/revalidate observations are
// skipped. Use NewDistributed instead when REDIS_ADDR is configured, for
// cross-instance de-duplication (SPEC_FULL.md §4.5 expansion).
func New(store *objectstore.Store, lookup UpstreamLookup, mutablePatterns []string, metrics *health.Metrics) *Controller {
	return newController(store, lookup, mutablePatterns, metrics, &inProcessGroup{})
}

func newController(store *objectstore.Store, lookup UpstreamLookup, mutablePatterns []string, metrics *health.Metrics, group flightGroup) *Controller {
	return &Controller{
		store:    store,
		lookup:   lookup,
		patterns: mutablePatterns,
		metrics:  metrics,
		group:    group,
		blobSem:  make(chan struct{}, blobSemaphoreSize),
	}
}

// observe records a proxy-path observation if metrics were configured.
func (c *Controller) observe(class, outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.Observe(class, outcome, time.Since(start))
}

// GetManifest implements the proxied-manifest state machine of spec.md
// §4.5: digest references resolve content-addressably; tag references
// consult (and, on miss, populate) the cache-metadata document, serving
// stale content immediately for mutable tags while a background refresh
// runs at most once per tuple.
func (c *Controller) GetManifest(ctx context.Context, upstreamName, image, ref string) (*Manifest, error) {
	client := c.lookup(upstreamName)
	if client == nil {
		return nil, errors.New("cache: unconfigured upstream " + upstreamName)
	}

	if d, err := digest.Parse(ref); err == nil {
		return c.getByDigest(ctx, client, image, d)
	}
	return c.getByTag(ctx, client, upstreamName, image, ref)
}

func (c *Controller) getByDigest(ctx context.Context, client UpstreamClient, image string, d digest.Digest) (*Manifest, error) {
	start := time.Now()
	if exists, err := c.store.BlobExists(ctx, d); err == nil && exists {
		body, size, err := c.store.GetBlob(ctx, d)
		if err == nil {
			defer body.Close()
			data, err := io.ReadAll(io.LimitReader(body, size))
			if err == nil {
				c.observe(health.ClassProxyHit, "ok", start)
				return &Manifest{Content: data, Digest: string(d)}, nil
			}
		}
	}

	fetched, err := client.GetManifest(ctx, image, string(d))
	if err != nil {
		c.observe(health.ClassProxyMiss, "error", start)
		return nil, translateErr(err)
	}
	if err := c.store.PutBlob(ctx, d, bytes.NewReader(fetched.Content), int64(len(fetched.Content))); err != nil {
		c.observe(health.ClassProxyMiss, "error", start)
		return nil, err
	}
	c.observe(health.ClassProxyMiss, "ok", start)
	return &Manifest{Content: fetched.Content, Digest: string(d), ContentType: fetched.ContentType}, nil
}

func (c *Controller) getByTag(ctx context.Context, client UpstreamClient, upstreamName, image, tag string) (*Manifest, error) {
	start := time.Now()
	meta, err := c.store.GetCacheMeta(ctx, upstreamName, image, tag)
	if errors.Is(err, objectstore.ErrNotFound) {
		return c.fillTag(ctx, client, upstreamName, image, tag, start)
	}
	if err != nil {
		c.observe(health.ClassProxyMiss, "error", start)
		return nil, err
	}

	content, err := c.store.GetProxyManifest(ctx, upstreamName, image, tag)
	if errors.Is(err, objectstore.ErrNotFound) {
		// Metadata visible without content yet visible: treat as a miss
		// per spec.md §5 ordering guarantees.
		return c.fillTag(ctx, client, upstreamName, image, tag, start)
	}
	if err != nil {
		c.observe(health.ClassProxyMiss, "error", start)
		return nil, err
	}

	if meta.Mutable {
		c.scheduleRefresh(upstreamName, image, tag, client)
		c.observe(health.ClassProxyRevalidate, "ok", start)
	} else {
		c.observe(health.ClassProxyHit, "ok", start)
	}

	return &Manifest{Content: content, Digest: meta.Digest}, nil
}

// fillTag synchronously fetches an uncached tag from upstream, writes the
// manifest content, cache metadata, and kicks off background blob
// caching for its layers.
func (c *Controller) fillTag(ctx context.Context, client UpstreamClient, upstreamName, image, tag string, start time.Time) (*Manifest, error) {
	fetched, err := client.GetManifest(ctx, image, tag)
	if err != nil {
		c.observe(health.ClassProxyMiss, "error", start)
		return nil, translateErr(err)
	}

	now := time.Now().Unix()
	if err := c.store.PutProxyManifest(ctx, upstreamName, image, tag, fetched.Content); err != nil {
		c.observe(health.ClassProxyMiss, "error", start)
		return nil, err
	}
	meta := &objectstore.CacheMeta{
		Digest:          fetched.Digest,
		Mutable:         IsMutable(tag, c.patterns),
		LastCheckEpoch:  now,
		LastUpdateEpoch: now,
	}
	if err := c.store.PutCacheMeta(ctx, upstreamName, image, tag, meta); err != nil {
		c.observe(health.ClassProxyMiss, "error", start)
		return nil, err
	}

	go c.cacheBlobs(context.Background(), client, image, fetched.Content)

	c.observe(health.ClassProxyMiss, "ok", start)
	return &Manifest{Content: fetched.Content, Digest: fetched.Digest, ContentType: fetched.ContentType}, nil
}

// scheduleRefresh kicks off a background revalidation for (upstream,
// image, tag) unless one is already in flight — the single-flight
// invariant from spec.md §4.5 and §8.
func (c *Controller) scheduleRefresh(upstreamName, image, tag string, client UpstreamClient) {
	key := upstreamName + "|" + image + "|" + tag
	go c.group.Do(key, func() {
		c.refresh(context.Background(), client, upstreamName, image, tag)
	})
}

// refresh HEADs the upstream manifest; if unchanged it only bumps
// last_check, otherwise it fetches and stores the new manifest and
// refreshes its blobs. Errors are logged, never surfaced to callers —
// refresh runs off the client's request path.
func (c *Controller) refresh(ctx context.Context, client UpstreamClient, upstreamName, image, tag string) {
	meta, err := c.store.GetCacheMeta(ctx, upstreamName, image, tag)
	if err != nil {
		slog.Warn("cache refresh: reading meta failed", "upstream", upstreamName, "image", image, "tag", tag, "error", err)
		return
	}

	newDigest, err := client.HeadManifest(ctx, image, tag)
	if err != nil {
		slog.Warn("cache refresh: upstream HEAD failed", "upstream", upstreamName, "image", image, "tag", tag, "error", err)
		return
	}

	now := time.Now().Unix()
	if newDigest == meta.Digest {
		meta.LastCheckEpoch = now
		if err := c.store.PutCacheMeta(ctx, upstreamName, image, tag, meta); err != nil {
			slog.Warn("cache refresh: writing meta failed", "error", err)
		}
		return
	}

	fetched, err := client.GetManifest(ctx, image, tag)
	if err != nil {
		slog.Warn("cache refresh: upstream GET failed", "upstream", upstreamName, "image", image, "tag", tag, "error", err)
		return
	}
	if err := c.store.PutProxyManifest(ctx, upstreamName, image, tag, fetched.Content); err != nil {
		slog.Warn("cache refresh: writing manifest failed", "error", err)
		return
	}
	meta.Digest = fetched.Digest
	meta.LastCheckEpoch = now
	meta.LastUpdateEpoch = now
	if err := c.store.PutCacheMeta(ctx, upstreamName, image, tag, meta); err != nil {
		slog.Warn("cache refresh: writing meta failed", "error", err)
		return
	}

	c.cacheBlobs(ctx, client, image, fetched.Content)
}

// cacheBlobs fetches and stores every blob a manifest references, bounded
// by blobSemaphoreSize concurrent fetches. Individual failures are
// tolerated — the manifest remains valid, and missing blobs are fetched
// on demand later.
func (c *Controller) cacheBlobs(ctx context.Context, client UpstreamClient, image string, manifestBody []byte) {
	digests := referencedBlobDigests(manifestBody)
	var wg sync.WaitGroup
	for _, raw := range digests {
		d, err := digest.Parse(raw)
		if err != nil {
			continue
		}
		if exists, err := c.store.BlobExists(ctx, d); err == nil && exists {
			continue
		}

		wg.Add(1)
		c.blobSem <- struct{}{}
		go func(d digest.Digest) {
			defer wg.Done()
			defer func() { <-c.blobSem }()

			body, err := client.GetBlob(ctx, image, string(d))
			if err != nil {
				slog.Debug("cache: background blob fetch failed", "digest", d, "error", err)
				return
			}
			defer body.Close()
			if err := c.store.PutBlob(ctx, d, body, -1); err != nil {
				slog.Debug("cache: background blob store failed", "digest", d, "error", err)
			}
		}(d)
	}
	wg.Wait()
}

func translateErr(err error) error {
	if errors.Is(err, upstream.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
