package admin

import (
	"context"
	"net/url"
	"sync"
	"time"

	"detailing-booking/internal/backend"
	"detailing-booking/internal/model"
	"detailing-booking/internal/query"
)

// Backend is the slice of the backend client the dashboard needs.
type Backend interface {
	AdminBookings(ctx context.Context, token string, query url.Values) (*backend.BookingPage, error)
	UpdateBooking(ctx context.Context, token string, id int64, req model.UpdateBookingRequest) error
}

// Table is the booking list of one admin: server-side filter, client-side
// search and sort.
type Table struct {
	mu sync.Mutex

	backend Backend
	cache   *query.Cache
	token   string
	adminID string

	filter   Filter
	search   string
	desc     bool
	debounce *Debouncer

	loadedKey string
	page      *backend.BookingPage
}

// NewTable creates a table for the admin identified by token/adminID.
func NewTable(b Backend, c *query.Cache, token, adminID string, debounce time.Duration) *Table {
	return &Table{
		backend:  b,
		cache:    c,
		token:    token,
		adminID:  adminID,
		debounce: NewDebouncer(debounce),
	}
}

// SetFilter replaces the server-side filter. Call Load to apply it.
func (t *Table) SetFilter(f Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filter = f
	return nil
}

// SetSearch applies q at once and drops any search still waiting in Type.
func (t *Table) SetSearch(q string) {
	t.debounce.Stop()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.search = q
}

// Type is SetSearch for text arriving keystroke by keystroke: only the last
// value of a burst is applied, once typing pauses.
func (t *Table) Type(q string) {
	t.debounce.Trigger(func() {
		t.mu.Lock()
		t.search = q
		t.mu.Unlock()
	})
}

// Search returns the search text currently applied.
func (t *Table) Search() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.search
}

// SetDescending picks the sort direction.
func (t *Table) SetDescending(desc bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.desc = desc
}

// ToggleSort flips the sort direction and returns the new one.
func (t *Table) ToggleSort() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.desc = !t.desc
	return t.desc
}

// Key is the query key of the last load.
func (t *Table) Key() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadedKey
}

func (t *Table) fetch(f Filter) func(context.Context) (*backend.BookingPage, error) {
	return func(ctx context.Context) (*backend.BookingPage, error) {
		return t.backend.AdminBookings(ctx, t.token, f.Values())
	}
}

// Load fetches the list for the current filter through the shared cache.
func (t *Table) Load(ctx context.Context) error {
	t.mu.Lock()
	f := t.filter
	t.mu.Unlock()

	key := f.Key(t.adminID)
	page, err := query.Get(ctx, t.cache, key, t.fetch(f))
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.filter != f {
		return query.ErrStale
	}
	t.loadedKey = key
	t.page = page
	return nil
}

// Total is the backend's total for the current filter.
func (t *Table) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.page == nil {
		return 0
	}
	return t.page.Total
}

// Rows returns the loaded bookings after search and sort.
func (t *Table) Rows() []model.Booking {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.page == nil {
		return nil
	}
	return Sort(Search(t.page.Bookings, t.search), t.desc)
}

// Apply runs a status action on booking id and refetches the table's query.
func (t *Table) Apply(ctx context.Context, id int64, a Action) error {
	if a.Target() == "" {
		return ErrUnknownAction
	}

	t.mu.Lock()
	var row *model.Booking
	if t.page != nil {
		for i := range t.page.Bookings {
			if t.page.Bookings[i].ID == id {
				row = &t.page.Bookings[i]
				break
			}
		}
	}
	f := t.filter
	key := t.loadedKey
	t.mu.Unlock()

	if row == nil {
		return ErrUnknownBooking
	}
	if !ActionEnabled(*row, a) {
		return ErrActionDisabled
	}

	status := a.Target()
	if err := t.backend.UpdateBooking(ctx, t.token, id, model.UpdateBookingRequest{Status: &status}); err != nil {
		return err
	}

	page, err := query.Refetch(ctx, t.cache, key, t.fetch(f))
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.page = page
	t.mu.Unlock()
	return nil
}

// Reload refetches the last loaded query, e.g. after an edit made elsewhere.
func (t *Table) Reload(ctx context.Context) error {
	t.mu.Lock()
	f := t.filter
	key := t.loadedKey
	t.mu.Unlock()
	if key == "" {
		return t.Load(ctx)
	}

	page, err := query.Refetch(ctx, t.cache, key, t.fetch(f))
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.page = page
	t.mu.Unlock()
	return nil
}

// Descending reports the current sort direction.
func (t *Table) Descending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.desc
}

// Close drops a search still waiting in Type.
func (t *Table) Close() {
	t.debounce.Stop()
}
