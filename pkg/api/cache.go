package api

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/craftpanel/pluginhub/pkg/observability"
	"github.com/craftpanel/pluginhub/pkg/providers"
)

const searchCacheName = "search_results"

// searchCache memoizes search pages for a short TTL. Marketplace listings
// change slowly relative to how often a panel page is reloaded, so even a
// one-minute TTL absorbs most repeat traffic.
type searchCache struct {
	lru     *expirable.LRU[string, providers.SearchResult]
	metrics *observability.Metrics
}

func newSearchCache(size int, ttl time.Duration, metrics *observability.Metrics) *searchCache {
	if size <= 0 || ttl <= 0 {
		return nil
	}
	return &searchCache{
		lru:     expirable.NewLRU[string, providers.SearchResult](size, nil, ttl),
		metrics: metrics,
	}
}

func searchCacheKey(p providers.Provider, filters providers.SearchFilters) string {
	return fmt.Sprintf("%s|%s|%d|%d|%s", p, filters.Query, filters.Page, filters.PageSize, filters.MinecraftVersion)
}

func (c *searchCache) get(key string) (providers.SearchResult, bool) {
	if c == nil {
		return providers.SearchResult{}, false
	}
	result, ok := c.lru.Get(key)
	if c.metrics != nil {
		if ok {
			c.metrics.CacheHitsTotal.WithLabelValues(searchCacheName).Inc()
		} else {
			c.metrics.CacheMissesTotal.WithLabelValues(searchCacheName).Inc()
		}
	}
	return result, ok
}

func (c *searchCache) add(key string, result providers.SearchResult) {
	if c == nil {
		return
	}
	c.lru.Add(key, result)
}
