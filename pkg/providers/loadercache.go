package providers

import (
	"context"
	"sync"
	"time"

	"github.com/craftpanel/pluginhub/pkg/observability"
)

// DefaultLoaderCacheTTL is how long the Modrinth loader-tag set is reused
// before it is fetched again.
const DefaultLoaderCacheTTL = 24 * time.Hour

// LoaderCache holds the set of Modrinth loader tags that support plugins.
// The set changes rarely upstream, so it is fetched lazily and reused
// process-wide until it expires. There is no invalidation API.
type LoaderCache struct {
	ttl     time.Duration
	metrics *observability.Metrics

	mu        sync.Mutex
	values    []string
	expiresAt time.Time
}

// NewLoaderCache creates a loader-tag cache. A non-positive ttl falls back
// to DefaultLoaderCacheTTL. metrics may be nil.
func NewLoaderCache(ttl time.Duration, metrics *observability.Metrics) *LoaderCache {
	if ttl <= 0 {
		ttl = DefaultLoaderCacheTTL
	}
	return &LoaderCache{ttl: ttl, metrics: metrics}
}

// Get returns the cached loader tags, calling fetch when the cache is empty
// or expired. A fetch failure leaves the cache untouched.
func (c *LoaderCache) Get(ctx context.Context, fetch func(context.Context) ([]string, error)) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.values != nil && time.Now().Before(c.expiresAt) {
		c.hit()
		return c.values, nil
	}

	c.miss()
	values, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.values = values
	c.expiresAt = time.Now().Add(c.ttl)
	return values, nil
}

func (c *LoaderCache) hit() {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues("modrinth_loaders").Inc()
	}
}

func (c *LoaderCache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues("modrinth_loaders").Inc()
	}
}
