// Package query caches backend reads by key, shares in-flight requests for the
// same key and drops responses that a newer request has superseded.
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Key joins parts into a cache key.
func Key(parts ...any) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	return strings.Join(s, "|")
}

// Cache is a TTL cache of query results. Invalidating a key bumps its
// generation so a fetch that started earlier can not repopulate it.
type Cache struct {
	store *cache.Cache
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

// New creates a cache whose entries live for ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		store: cache.New(ttl, 2*ttl),
		gens:  make(map[string]uint64),
	}
}

func (c *Cache) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}

// Invalidate drops key and fences off fetches already in flight for it.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	c.gens[key]++
	c.mu.Unlock()
	c.store.Delete(key)
	c.group.Forget(key)
}

// Get returns the cached value for key, or runs fn once for all concurrent
// callers asking for the same key and caches its result.
func Get[T any](ctx context.Context, c *Cache, key string, fn func(context.Context) (T, error)) (T, error) {
	if v, found := c.store.Get(key); found {
		return v.(T), nil
	}

	gen := c.generation(key)
	v, err, _ := c.group.Do(key, func() (any, error) {
		res, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return res, err
		}
		if c.generation(key) == gen {
			c.store.SetDefault(key, res)
		}
		return res, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Refetch invalidates key and loads it again with fn.
func Refetch[T any](ctx context.Context, c *Cache, key string, fn func(context.Context) (T, error)) (T, error) {
	c.Invalidate(key)
	return Get(ctx, c, key, fn)
}
