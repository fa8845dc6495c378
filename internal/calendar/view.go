package calendar

import (
	"errors"
	"time"

	"detailing-booking/internal/parse"
)

// ErrDateDisabled is returned when selecting a day the view does not allow.
var ErrDateDisabled = errors.New("date is not selectable")

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// View is a month calendar with navigation and single-day selection.
type View struct {
	loc              *time.Location
	viewDate         time.Time
	selected         *time.Time
	pastDateDisabled bool
	now              func() time.Time

	dateCell     func(time.Time) any
	onChange     func(time.Time)
	onViewChange func(time.Time)
}

// Option configures a View.
type Option func(*View)

// WithNow overrides the clock used for "today".
func WithNow(now func() time.Time) Option {
	return func(v *View) { v.now = now }
}

// WithValue preselects a date and focuses its month.
func WithValue(t time.Time) Option {
	return func(v *View) {
		day := StartOfDay(t.In(v.loc))
		v.selected = &day
		v.viewDate = firstOfMonth(day)
	}
}

// WithPastDates allows selecting days before today.
func WithPastDates() Option {
	return func(v *View) { v.pastDateDisabled = false }
}

// WithDateCell attaches per-day content (badges, counts) to rendered cells.
func WithDateCell(fn func(time.Time) any) Option {
	return func(v *View) { v.dateCell = fn }
}

// WithOnChange is called after a day is selected.
func WithOnChange(fn func(time.Time)) Option {
	return func(v *View) { v.onChange = fn }
}

// WithOnViewChange is called after the focused month changes.
func WithOnViewChange(fn func(time.Time)) Option {
	return func(v *View) { v.onViewChange = fn }
}

// NewView returns a view focused on the current month. Past dates are disabled
// unless WithPastDates is given.
func NewView(loc *time.Location, opts ...Option) *View {
	if loc == nil {
		loc = time.Local
	}
	v := &View{
		loc:              loc,
		pastDateDisabled: true,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.selected == nil {
		v.viewDate = firstOfMonth(v.today())
	}
	return v
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func (v *View) today() time.Time {
	return StartOfDay(v.now().In(v.loc))
}

// ViewDate is day 1 of the focused month.
func (v *View) ViewDate() time.Time { return v.viewDate }

// Selected returns the selected day, if any.
func (v *View) Selected() (time.Time, bool) {
	if v.selected == nil {
		return time.Time{}, false
	}
	return *v.selected, true
}

// NextMonth moves the focus one month forward.
func (v *View) NextMonth() { v.shift(1) }

// PrevMonth moves the focus one month back.
func (v *View) PrevMonth() { v.shift(-1) }

func (v *View) shift(months int) {
	v.setViewDate(time.Date(v.viewDate.Year(), v.viewDate.Month()+time.Month(months), 1, 0, 0, 0, 0, v.loc))
}

// JumpTo focuses the month given as YYYY-MM.
func (v *View) JumpTo(month string) error {
	t, err := parse.Month(month, v.loc)
	if err != nil {
		return err
	}
	v.setViewDate(t)
	return nil
}

func (v *View) setViewDate(t time.Time) {
	v.viewDate = t
	if v.onViewChange != nil {
		v.onViewChange(t)
	}
}

// IsDisabled reports whether day can not be selected: it is strictly before
// today's midnight and past dates are disabled.
func (v *View) IsDisabled(day time.Time) bool {
	if !v.pastDateDisabled {
		return false
	}
	return StartOfDay(day.In(v.loc)).Before(v.today())
}

// Select marks day as selected and notifies OnChange.
func (v *View) Select(day time.Time) error {
	if v.IsDisabled(day) {
		return ErrDateDisabled
	}
	d := StartOfDay(day.In(v.loc))
	v.selected = &d
	if v.onChange != nil {
		v.onChange(d)
	}
	return nil
}

// Header is a weekday column heading.
type Header struct {
	Label   string `json:"label"`
	Weekend bool   `json:"weekend"`
}

// DayCell is a rendered grid cell.
type DayCell struct {
	Blank    bool   `json:"blank"`
	Date     string `json:"date,omitempty"`
	Day      int    `json:"day,omitempty"`
	Today    bool   `json:"today,omitempty"`
	Selected bool   `json:"selected,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// Month is the render output of a View.
type Month struct {
	Year    int       `json:"year"`
	Month   int       `json:"month"`
	Value   string    `json:"value"` // YYYY-MM for the month picker
	Headers []Header  `json:"headers"`
	Cells   []DayCell `json:"cells"`
}

// Render lays out the focused month.
func (v *View) Render() Month {
	today := v.today()
	out := Month{
		Year:    v.viewDate.Year(),
		Month:   int(v.viewDate.Month()),
		Value:   v.viewDate.Format(parse.MonthLayout),
		Headers: make([]Header, 0, len(weekdayLabels)),
	}
	for i, label := range weekdayLabels {
		wd := time.Weekday(i)
		out.Headers = append(out.Headers, Header{Label: label, Weekend: wd == time.Saturday || wd == time.Sunday})
	}

	grid := Grid(v.viewDate.Year(), v.viewDate.Month(), v.loc)
	out.Cells = make([]DayCell, 0, len(grid))
	for _, c := range grid {
		if c.Blank {
			out.Cells = append(out.Cells, DayCell{Blank: true})
			continue
		}
		cell := DayCell{
			Date:     c.Date.Format(parse.DateLayout),
			Day:      c.Date.Day(),
			Today:    c.Date.Equal(today),
			Selected: v.selected != nil && SameDay(*v.selected, c.Date),
			Disabled: v.IsDisabled(c.Date),
		}
		if v.dateCell != nil {
			cell.Content = v.dateCell(c.Date)
		}
		out.Cells = append(out.Cells, cell)
	}
	return out
}
