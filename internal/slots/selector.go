// Package slots implements the time-slot picker: a calendar plus the list of
// bookable start times for the chosen (date, location, service).
package slots

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"detailing-booking/internal/calendar"
	"detailing-booking/internal/metrics"
	"detailing-booking/internal/model"
	"detailing-booking/internal/parse"
	"detailing-booking/internal/query"
)

const (
	MsgNoLocation = "Please choose a location first."
	MsgNoService  = "Please choose a service first."
	MsgNoSlots    = "No available times on this day."
	MsgLoadFailed = "Could not load available times, please try again."
)

// ErrUnknownSlot is returned when selecting a time that is not on offer.
var ErrUnknownSlot = errors.New("slots: time is not available")

// Fetcher is the slice of the backend client a Selector needs.
type Fetcher interface {
	AvailableSlots(ctx context.Context, date string, locationID, serviceID int64) ([]model.TimeSlot, error)
}

// Options configures a Selector.
type Options struct {
	Scope    string // one scope per picker instance, e.g. the wizard session id
	Location *time.Location
	Clock24h bool
	Now      func() time.Time
	Value    *time.Time
	OnChange func(time.Time)
	Metrics  *metrics.BackendMetrics
}

// Selector holds the picker state. Loads for a superseded (date, location,
// service) are discarded so an older response never overwrites a newer one.
type Selector struct {
	mu sync.Mutex

	fetcher Fetcher
	cache   *query.Cache
	tracker *query.Tracker
	opts    Options

	view       *calendar.View
	date       time.Time
	locationID int64
	serviceID  int64

	loading  bool
	loaded   bool
	slots    []time.Time
	selected *time.Time
	loadErr  bool
}

// NewSelector creates a picker focused on today, or on opts.Value if given.
func NewSelector(f Fetcher, c *query.Cache, tr *query.Tracker, opts Options) *Selector {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	viewOpts := []calendar.Option{calendar.WithNow(opts.Now)}
	s := &Selector{fetcher: f, cache: c, tracker: tr, opts: opts}
	if opts.Value != nil {
		v := opts.Value.In(opts.Location)
		s.date = calendar.StartOfDay(v)
		s.selected = &v
		viewOpts = append(viewOpts, calendar.WithValue(v))
	} else {
		s.date = calendar.StartOfDay(opts.Now().In(opts.Location))
		viewOpts = append(viewOpts, calendar.WithValue(s.date))
	}
	s.view = calendar.NewView(opts.Location, viewOpts...)
	return s
}

// Key is the cache key for the current inputs.
func (s *Selector) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key()
}

func (s *Selector) key() string {
	return CacheKey(s.date, s.locationID, s.serviceID)
}

// CacheKey is the query key of the slots offered on day for a location and
// service.
func CacheKey(day time.Time, locationID, serviceID int64) string {
	return query.Key("slots", day.Format(parse.DateLayout), locationID, serviceID)
}

// SetLocation changes the location; a change clears the selected time.
func (s *Selector) SetLocation(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locationID != id {
		s.locationID = id
		s.reset()
	}
}

// SetService changes the service; a change clears the selected time.
func (s *Selector) SetService(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.serviceID != id {
		s.serviceID = id
		s.reset()
	}
}

// SetDate picks a day on the embedded calendar.
func (s *Selector) SetDate(day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.view.Select(day); err != nil {
		return err
	}
	d, _ := s.view.Selected()
	if !d.Equal(s.date) {
		s.date = d
		s.reset()
	}
	return nil
}

func (s *Selector) reset() {
	s.selected = nil
	s.slots = nil
	s.loading = false
	s.loaded = false
	s.loadErr = false
}

// NextMonth, PrevMonth and JumpTo move the calendar without changing the date.
func (s *Selector) NextMonth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.NextMonth()
}

func (s *Selector) PrevMonth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.PrevMonth()
}

func (s *Selector) JumpTo(month string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.JumpTo(month)
}

// Load fetches slots for the current inputs. It returns query.ErrStale if the
// inputs changed while the request was in flight; the newer state is kept.
func (s *Selector) Load(ctx context.Context) error {
	return s.load(ctx, query.Get[[]model.TimeSlot])
}

// Refresh is Load bypassing the shared cache.
func (s *Selector) Refresh(ctx context.Context) error {
	return s.load(ctx, query.Refetch[[]model.TimeSlot])
}

type getter func(context.Context, *query.Cache, string, func(context.Context) ([]model.TimeSlot, error)) ([]model.TimeSlot, error)

func (s *Selector) load(ctx context.Context, get getter) error {
	s.mu.Lock()
	if s.locationID == 0 || s.serviceID == 0 {
		s.loading = false
		s.mu.Unlock()
		return nil
	}
	key := s.key()
	date := s.date
	locationID, serviceID := s.locationID, s.serviceID
	ticket := s.tracker.Begin(s.opts.Scope, key)
	s.loading = true
	s.mu.Unlock()

	raw, err := get(ctx, s.cache, key, func(ctx context.Context) ([]model.TimeSlot, error) {
		return s.fetcher.AvailableSlots(ctx, date.Format(parse.DateLayout), locationID, serviceID)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tracker.Current(ticket) || key != s.key() {
		s.opts.Metrics.ObserveStale("slots")
		return query.ErrStale
	}
	s.loading = false
	s.loaded = true
	if err != nil {
		s.slots = nil
		s.loadErr = true
		return err
	}
	s.loadErr = false
	s.slots = Normalize(raw, date, s.opts.Now())
	return nil
}

// Normalize parses, deduplicates and sorts slots for day, dropping start
// times that have already passed.
func Normalize(raw []model.TimeSlot, day time.Time, now time.Time) []time.Time {
	seen := make(map[time.Time]bool, len(raw))
	out := make([]time.Time, 0, len(raw))
	for _, slot := range raw {
		t, err := parse.SlotTime(slot.Time, day)
		if err != nil || seen[t] {
			continue
		}
		if !t.After(now) {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Select chooses one of the loaded slots ("HH:MM:SS") and notifies OnChange.
func (s *Selector) Select(slot string) (time.Time, error) {
	s.mu.Lock()
	t, err := parse.SlotTime(slot, s.date)
	if err != nil {
		s.mu.Unlock()
		return time.Time{}, err
	}
	found := false
	for _, candidate := range s.slots {
		if candidate.Equal(t) {
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return time.Time{}, ErrUnknownSlot
	}
	s.selected = &t
	onChange := s.opts.OnChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(t)
	}
	return t, nil
}

// Selected returns the chosen slot, if any.
func (s *Selector) Selected() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return time.Time{}, false
	}
	return *s.selected, true
}

// SlotView is one rendered slot button.
type SlotView struct {
	Time     string `json:"time"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// View is the render output of a Selector.
type View struct {
	Calendar calendar.Month `json:"calendar"`
	Date     string         `json:"date"`
	Loading  bool           `json:"loading"`
	Slots    []SlotView     `json:"slots"`
	Selected string         `json:"selected,omitempty"`
	Empty    string         `json:"empty,omitempty"`
}

// Label formats a slot start for display.
func Label(t time.Time, clock24h bool) string {
	if clock24h {
		return t.Format("15:04")
	}
	return t.Format("3:04 PM")
}

// View renders the picker.
func (s *Selector) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := View{
		Calendar: s.view.Render(),
		Date:     s.date.Format(parse.DateLayout),
		Loading:  s.loading,
		Slots:    make([]SlotView, 0, len(s.slots)),
	}
	if s.selected != nil {
		out.Selected = s.selected.Format(parse.SlotLayout)
	}
	for _, t := range s.slots {
		out.Slots = append(out.Slots, SlotView{
			Time:     t.Format(parse.SlotLayout),
			Label:    Label(t, s.opts.Clock24h),
			Selected: s.selected != nil && s.selected.Equal(t),
		})
	}

	switch {
	case s.locationID == 0:
		out.Empty = MsgNoLocation
	case s.serviceID == 0:
		out.Empty = MsgNoService
	case s.loading:
	case s.loadErr:
		out.Empty = MsgLoadFailed
	case s.loaded && len(s.slots) == 0:
		out.Empty = MsgNoSlots
	}
	return out
}
