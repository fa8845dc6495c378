// Package calendar builds month grids and the selectable calendar view used by
// the booking wizard and the admin schedule.
package calendar

import "time"

// Cell is one slot of a 7-column month grid. Blank cells pad the first week.
type Cell struct {
	Blank bool
	Date  time.Time
}

// Grid returns the cells for month in year: one blank per weekday before day 1
// (Sunday = 0), then every day of the month at local midnight. There is no
// trailing padding, so the result holds 28 to 42 cells.
func Grid(year int, month time.Month, loc *time.Location) []Cell {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	days := DaysIn(year, month, loc)
	lead := int(first.Weekday())

	cells := make([]Cell, 0, lead+days)
	for i := 0; i < lead; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for d := 1; d <= days; d++ {
		cells = append(cells, Cell{Date: time.Date(year, month, d, 0, 0, 0, 0, loc)})
	}
	return cells
}

// GridZero is Grid for a zero-based month index (0 = January), as produced by
// month pickers.
func GridZero(year, month0 int, loc *time.Location) []Cell {
	return Grid(year, time.Month(month0+1), loc)
}

// DaysIn returns the number of days in month. Day 0 of the next month is the
// last day of this one.
func DaysIn(year int, month time.Month, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
