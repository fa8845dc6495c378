package slots

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Registry keeps one Selector per wizard session and forgets idle ones.
type Registry struct {
	items *cache.Cache
	build func(scope string) *Selector
}

// NewRegistry creates a registry whose selectors expire after ttl of disuse.
func NewRegistry(ttl time.Duration, build func(scope string) *Selector) *Registry {
	return &Registry{
		items: cache.New(ttl, 2*ttl),
		build: build,
	}
}

// Get returns the selector for scope, creating it on first use.
func (r *Registry) Get(scope string) *Selector {
	if v, found := r.items.Get(scope); found {
		sel := v.(*Selector)
		r.items.SetDefault(scope, sel) // refresh expiry
		return sel
	}
	sel := r.build(scope)
	if err := r.items.Add(scope, sel, cache.DefaultExpiration); err != nil {
		// Lost a race with a concurrent Get; use the winner.
		if v, found := r.items.Get(scope); found {
			return v.(*Selector)
		}
	}
	return sel
}

// Drop discards the selector for scope.
func (r *Registry) Drop(scope string) {
	r.items.Delete(scope)
}
