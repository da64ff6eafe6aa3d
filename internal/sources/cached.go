package sources

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"pnl/internal/cache"
	"pnl/internal/core"
)

// sharedLoadTimeout bounds a store lookup shared by several callers, since
// it no longer follows any single caller's context.
const sharedLoadTimeout = 30 * time.Second

// CachedFacts memoises fact lookups for a short TTL so that the many
// identical queries issued by a grid or comparison hit the store once.
// Concurrent identical lookups share a single in-flight request.
type CachedFacts struct {
	next  FactsProvider
	cache *cache.LRUCache[float64]
	group singleflight.Group
}

func NewCachedFacts(next FactsProvider, size int, ttl time.Duration) *CachedFacts {
	return &CachedFacts{
		next:  next,
		cache: cache.NewLRUCache[float64](size, ttl),
	}
}

func (c *CachedFacts) Value(ctx context.Context, q core.FactQuery) (float64, error) {
	key := q.FactKey()
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	// The shared load outlives a cancelled caller; each caller only stops
	// waiting on its own ctx.
	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		v, err := c.next.Value(loadCtx, q)
		if err != nil {
			return 0.0, err
		}
		c.cache.Set(key, v)
		return v, nil
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(float64), nil
	}
}

func (c *CachedFacts) SupportsDimension() bool {
	return c.next.SupportsDimension()
}

// Cache exposes the underlying cache for expiry cleanup and stats.
func (c *CachedFacts) Cache() *cache.LRUCache[float64] {
	return c.cache
}
