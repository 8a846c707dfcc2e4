package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/registryx/repo-worker/pkg/health"
	"github.com/registryx/repo-worker/pkg/objectstore"
)

// redisGroup implements flightGroup as a distributed lock, so multiple
// Repository Worker instances sharing a Redis backend still de-duplicate
// background refreshes for the same tuple, rather than each instance
// maintaining its own independent in-process map.
type redisGroup struct {
	rdb *redis.Client
	ttl time.Duration
}

func (g *redisGroup) Do(key string, fn func()) {
	ctx, cancel := context.WithTimeout(context.Background(), g.ttl)
	defer cancel()

	lockKey := "repo-worker:refresh-lock:" + key
	acquired, err := g.rdb.SetNX(ctx, lockKey, "1", g.ttl).Result()
	if err != nil {
		slog.Warn("cache: redis lock acquisition failed, running locally", "key", key, "error", err)
		fn()
		return
	}
	if !acquired {
		return
	}
	defer g.rdb.Del(context.Background(), lockKey) //nolint:errcheck

	fn()
}

// NewDistributed constructs a Controller whose single-flight de-
// duplication is backed by Redis (REDIS_ADDR) instead of an in-process
// map, for deployments running more than one Repository Worker instance
// against the same object store.
func NewDistributed(store *objectstore.Store, lookup UpstreamLookup, mutablePatterns []string, metrics *health.Metrics, redisAddr string) *Controller {
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	return newController(store, lookup, mutablePatterns, metrics, &redisGroup{rdb: rdb, ttl: 2 * time.Minute})
}
