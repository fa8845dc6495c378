// Package admin backs the staff dashboard: the booking table with its
// filters, search and status actions, and the schedule calendar.
package admin

import (
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"detailing-booking/internal/model"
	"detailing-booking/internal/query"
)

// Filter is the server-side part of a booking list query.
type Filter struct {
	Page      int                 `form:"page" json:"page,omitempty"`
	Count     int                 `form:"count" json:"count,omitempty"`
	Status    model.BookingStatus `form:"status" json:"status,omitempty"`
	ServiceID int64               `form:"service_id" json:"service_id,omitempty"`
	From      string              `form:"from" json:"from,omitempty"` // YYYY-MM-DD, inclusive
	To        string              `form:"to" json:"to,omitempty"`     // YYYY-MM-DD, inclusive
}

// ErrInvalidStatus is returned for a status filter outside the known set.
var ErrInvalidStatus = errors.New("admin: unknown booking status")

// Validate checks the status value.
func (f Filter) Validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Values encodes the filter as the backend query string. Zero fields are omitted.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Count > 0 {
		v.Set("count", strconv.Itoa(f.Count))
	}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.ServiceID > 0 {
		v.Set("service_id", strconv.FormatInt(f.ServiceID, 10))
	}
	if f.From != "" {
		v.Set("start_date", f.From)
	}
	if f.To != "" {
		v.Set("end_date", f.To)
	}
	return v
}

// Key is the query key the table loads under for adminID. Status actions
// refetch exactly this key.
func (f Filter) Key(adminID string) string {
	return query.Key("admin_bookings", adminID, f.Values().Encode())
}

// Search keeps bookings whose name, phone, email, id or service name contains
// q, ignoring case. An empty q keeps everything.
func Search(bookings []model.Booking, q string) []model.Booking {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return bookings
	}
	out := make([]model.Booking, 0, len(bookings))
	for _, b := range bookings {
		fields := []string{b.Name, b.Phone, b.Email, strconv.FormatInt(b.ID, 10), b.ServiceName()}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// Sort orders bookings by scheduled time. The backend's timestamp layout
// sorts lexically in time order.
func Sort(bookings []model.Booking, desc bool) []model.Booking {
	out := make([]model.Booking, len(bookings))
	copy(out, bookings)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].Time > out[j].Time
		}
		return out[i].Time < out[j].Time
	})
	return out
}
