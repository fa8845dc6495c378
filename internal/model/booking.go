package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Info is the contact block a customer enters on the last wizard step.
type Info struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required,phone"`
	Email string `json:"email" binding:"required,email"`
}

// Booking is the server-owned booking entity.
type Booking struct {
	ID         int64         `json:"id"`
	LocationID int64         `json:"location_id"`
	ServiceID  int64         `json:"service_id"`
	Location   *Location     `json:"location,omitempty"`
	Service    *Service      `json:"service,omitempty"`
	Time       string        `json:"time"` // YYYY-MM-DD HH:mm:ss, timezone-naive
	Name       string        `json:"name"`
	Phone      string        `json:"phone"`
	Email      string        `json:"email"`
	Line       string        `json:"line,omitempty"`
	Status     BookingStatus `json:"status"`
}

// BookingTimeLayout is the backend's timezone-naive timestamp format.
const BookingTimeLayout = "2006-01-02 15:04:05"

// ScheduledAt parses Time in loc.
func (b Booking) ScheduledAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(BookingTimeLayout, b.Time, loc)
}

// ServiceName returns the embedded service name, if the backend included it.
func (b Booking) ServiceName() string {
	if b.Service == nil {
		return ""
	}
	return b.Service.Name
}

// CreateBookingRequest is the body of POST /v1/data/booking.
type CreateBookingRequest struct {
	LocationID int64  `json:"location_id"`
	ServiceID  int64  `json:"service_id"`
	Time       string `json:"time"`
	Info       Info   `json:"info"`
}

// UpdateBookingRequest is the body of PATCH /v1/admin/booking/:id. Nil fields
// are left untouched by the backend.
type UpdateBookingRequest struct {
	Status     *BookingStatus `json:"status,omitempty"`
	LocationID *int64         `json:"location_id,omitempty"`
	ServiceID  *int64         `json:"service_id,omitempty"`
	Time       *string        `json:"time,omitempty"`
	Name       *string        `json:"name,omitempty"`
	Phone      *string        `json:"phone,omitempty"`
	Email      *string        `json:"email,omitempty" binding:"omitempty,email"`
	Line       *string        `json:"line,omitempty"`
}
