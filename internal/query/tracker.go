package query

import (
	"errors"
	"sync"
)

// ErrStale is returned when a response arrives for a superseded request.
var ErrStale = errors.New("query: response superseded by a newer request")

// Ticket identifies one request made on behalf of a scope.
type Ticket struct {
	Scope string
	Key   string
	gen   uint64
}

// Tracker remembers the latest request per scope (a form field, a widget) so
// out-of-order responses for older inputs can be ignored.
type Tracker struct {
	mu     sync.Mutex
	latest map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{latest: make(map[string]uint64)}
}

// Begin records a new request for scope, superseding any earlier one.
func (t *Tracker) Begin(scope, key string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest[scope]++
	return Ticket{Scope: scope, Key: key, gen: t.latest[scope]}
}

// Current reports whether tk is still the latest request for its scope.
func (t *Tracker) Current(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[tk.Scope] == tk.gen
}

// Forget drops the scope's bookkeeping.
func (t *Tracker) Forget(scope string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.latest, scope)
}
