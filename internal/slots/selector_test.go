package slots

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detailing-booking/internal/model"
	"detailing-booking/internal/query"
)

var taipei = time.FixedZone("UTC+8", 8*60*60)

func fixedNow() time.Time {
	return time.Date(2024, time.June, 15, 10, 30, 0, 0, taipei)
}

type mockFetcher struct {
	mu    sync.Mutex
	calls []string
	fn    func(date string, locationID, serviceID int64) ([]model.TimeSlot, error)
}

func (m *mockFetcher) AvailableSlots(ctx context.Context, date string, locationID, serviceID int64) ([]model.TimeSlot, error) {
	m.mu.Lock()
	m.calls = append(m.calls, query.Key(date, locationID, serviceID))
	m.mu.Unlock()
	return m.fn(date, locationID, serviceID)
}

func newSelector(f Fetcher, opts Options) *Selector {
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	opts.Location = taipei
	if opts.Scope == "" {
		opts.Scope = "test"
	}
	return NewSelector(f, query.New(time.Minute), query.NewTracker(), opts)
}

func TestSelector_EmptyStates(t *testing.T) {
	f := &mockFetcher{fn: func(string, int64, int64) ([]model.TimeSlot, error) { return nil, nil }}
	s := newSelector(f, Options{})

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, MsgNoLocation, s.View().Empty)
	assert.Empty(t, f.calls, "nothing fetched without a location")

	s.SetLocation(1)
	assert.Equal(t, MsgNoService, s.View().Empty)

	s.SetService(2)
	require.NoError(t, s.Load(context.Background()))
	v := s.View()
	assert.Equal(t, MsgNoSlots, v.Empty)
	assert.Equal(t, "2024-06-15", v.Date)
	assert.False(t, v.Loading)
	assert.Equal(t, []string{"2024-06-15|1|2"}, f.calls)
}

func TestSelector_LoadAndSelect(t *testing.T) {
	f := &mockFetcher{fn: func(date string, _, _ int64) ([]model.TimeSlot, error) {
		return []model.TimeSlot{{Time: "14:00:00"}, {Time: "09:00:00"}, {Time: "14:00:00"}, {Time: "16:30:00"}}, nil
	}}
	var changed time.Time
	s := newSelector(f, Options{OnChange: func(t time.Time) { changed = t }})
	s.SetLocation(1)
	s.SetService(2)
	require.NoError(t, s.SetDate(time.Date(2024, time.June, 20, 0, 0, 0, 0, taipei)))
	require.NoError(t, s.Load(context.Background()))

	v := s.View()
	require.Len(t, v.Slots, 3, "duplicates removed")
	assert.Equal(t, "09:00:00", v.Slots[0].Time)
	assert.Equal(t, "9:00 AM", v.Slots[0].Label)
	assert.Equal(t, "4:30 PM", v.Slots[2].Label)
	assert.Empty(t, v.Empty)

	got, err := s.Select("14:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 20, 14, 0, 0, 0, taipei), got)
	assert.Equal(t, got, changed)
	assert.Equal(t, "14:00:00", s.View().Selected)
	assert.True(t, s.View().Slots[1].Selected)

	_, err = s.Select("11:00:00")
	assert.ErrorIs(t, err, ErrUnknownSlot)

	// Changing the service clears the chosen time.
	s.SetService(3)
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestSelector_PastSlotsDroppedToday(t *testing.T) {
	f := &mockFetcher{fn: func(string, int64, int64) ([]model.TimeSlot, error) {
		return []model.TimeSlot{{Time: "09:00:00"}, {Time: "10:30:00"}, {Time: "11:00:00"}}, nil
	}}
	s := newSelector(f, Options{})
	s.SetLocation(1)
	s.SetService(2)
	require.NoError(t, s.Load(context.Background()))

	v := s.View()
	require.Len(t, v.Slots, 1)
	assert.Equal(t, "11:00:00", v.Slots[0].Time)
}

func TestSelector_PastDateRejected(t *testing.T) {
	s := newSelector(&mockFetcher{}, Options{})
	assert.Error(t, s.SetDate(time.Date(2024, time.June, 1, 0, 0, 0, 0, taipei)))
	assert.Equal(t, "2024-06-15", s.View().Date)
}

func TestSelector_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	f := &mockFetcher{fn: func(date string, _, _ int64) ([]model.TimeSlot, error) {
		if date == "2024-06-20" {
			close(started)
			<-release
			return []model.TimeSlot{{Time: "09:00:00"}}, nil
		}
		return []model.TimeSlot{{Time: "15:00:00"}, {Time: "16:00:00"}}, nil
	}}
	s := newSelector(f, Options{})
	s.SetLocation(1)
	s.SetService(2)
	require.NoError(t, s.SetDate(time.Date(2024, time.June, 20, 0, 0, 0, 0, taipei)))

	slow := make(chan error, 1)
	go func() { slow <- s.Load(context.Background()) }()
	<-started

	// The user moves on to another day before the first response lands.
	require.NoError(t, s.SetDate(time.Date(2024, time.June, 21, 0, 0, 0, 0, taipei)))
	require.NoError(t, s.Load(context.Background()))

	close(release)
	assert.ErrorIs(t, <-slow, query.ErrStale)

	v := s.View()
	assert.Equal(t, "2024-06-21", v.Date)
	require.Len(t, v.Slots, 2)
	assert.Equal(t, "15:00:00", v.Slots[0].Time)
}

func TestSelector_InitialValue(t *testing.T) {
	at := time.Date(2024, time.July, 2, 13, 0, 0, 0, taipei)
	s := newSelector(&mockFetcher{}, Options{Value: &at, Clock24h: true})

	v := s.View()
	assert.Equal(t, "2024-07-02", v.Date)
	assert.Equal(t, "13:00:00", v.Selected)
	assert.Equal(t, "2024-07", v.Calendar.Value)
	assert.Equal(t, "13:00", Label(at, true))
}

func TestRegistry(t *testing.T) {
	built := 0
	r := NewRegistry(time.Minute, func(scope string) *Selector {
		built++
		return newSelector(&mockFetcher{}, Options{Scope: scope})
	})

	a := r.Get("a")
	assert.Same(t, a, r.Get("a"))
	assert.NotSame(t, a, r.Get("b"))
	assert.Equal(t, 2, built)

	r.Drop("a")
	assert.NotSame(t, a, r.Get("a"))
}

func TestSelector_RefreshBypassesCache(t *testing.T) {
	offered := []model.TimeSlot{{Time: "09:00:00"}, {Time: "14:30:00"}}
	f := &mockFetcher{fn: func(string, int64, int64) ([]model.TimeSlot, error) { return offered, nil }}
	c := query.New(time.Minute)
	tr := query.NewTracker()
	browse := NewSelector(f, c, tr, Options{Scope: "browse", Location: taipei, Now: fixedNow})
	pick := NewSelector(f, c, tr, Options{Scope: "pick", Location: taipei, Now: fixedNow})
	day := time.Date(2024, time.June, 16, 0, 0, 0, 0, taipei)
	for _, s := range []*Selector{browse, pick} {
		s.SetLocation(1)
		s.SetService(2)
		require.NoError(t, s.SetDate(day))
	}
	assert.Equal(t, CacheKey(day, 1, 2), browse.Key())

	require.NoError(t, browse.Load(context.Background()))
	offered = []model.TimeSlot{{Time: "09:00:00"}}

	require.NoError(t, pick.Load(context.Background()))
	_, err := pick.Select("14:30:00")
	assert.NoError(t, err, "cached list still offers the slot")
	assert.Len(t, f.calls, 1)

	require.NoError(t, pick.Refresh(context.Background()))
	_, err = pick.Select("14:30:00")
	assert.ErrorIs(t, err, ErrUnknownSlot)
	assert.Len(t, f.calls, 2)
}
