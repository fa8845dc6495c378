package admin

import (
	"time"

	"detailing-booking/internal/calendar"
	"detailing-booking/internal/model"
	"detailing-booking/internal/parse"
)

// Badge is one booking shown on a schedule day.
type Badge struct {
	ID     int64               `json:"id"`
	Time   string              `json:"time"` // HH:MM
	Name   string              `json:"name"`
	Status model.BookingStatus `json:"status"`
}

// Day is the content of one schedule cell.
type Day struct {
	Badges   []Badge `json:"badges"`
	Overflow int     `json:"overflow,omitempty"`
	Total    int     `json:"total"`
}

// Bucket groups bookings by local calendar day (YYYY-MM-DD in loc), keeping
// at most max badges per day in time order and counting the rest as overflow.
// Bookings with an unparseable time are skipped.
func Bucket(bookings []model.Booking, loc *time.Location, max int) map[string]Day {
	days := make(map[string]Day)
	for _, b := range Sort(bookings, false) {
		at, err := b.ScheduledAt(loc)
		if err != nil {
			continue
		}
		key := at.Format(parse.DateLayout)
		d := days[key]
		d.Total++
		if max <= 0 || len(d.Badges) < max {
			d.Badges = append(d.Badges, Badge{ID: b.ID, Time: at.Format("15:04"), Name: b.Name, Status: b.Status})
		} else {
			d.Overflow++
		}
		days[key] = d
	}
	return days
}

// MonthRange returns the inclusive first and last day of month (YYYY-MM).
func MonthRange(month string, loc *time.Location) (from, to string, err error) {
	start, err := parse.Month(month, loc)
	if err != nil {
		return "", "", err
	}
	end := start.AddDate(0, 1, -1)
	return start.Format(parse.DateLayout), end.Format(parse.DateLayout), nil
}

// RenderSchedule lays out month (YYYY-MM) with each day's badges in the cell
// content. Past days stay selectable on the schedule.
func RenderSchedule(bookings []model.Booking, month string, loc *time.Location, max int, now func() time.Time) (calendar.Month, error) {
	days := Bucket(bookings, loc, max)
	view := calendar.NewView(loc,
		calendar.WithNow(now),
		calendar.WithPastDates(),
		calendar.WithDateCell(func(d time.Time) any {
			if day, ok := days[d.Format(parse.DateLayout)]; ok {
				return day
			}
			return nil
		}),
	)
	if month != "" {
		if err := view.JumpTo(month); err != nil {
			return calendar.Month{}, err
		}
	}
	return view.Render(), nil
}
