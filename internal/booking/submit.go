// Package booking turns a completed wizard selection into a backend booking.
package booking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"detailing-booking/internal/backend"
	"detailing-booking/internal/model"
	"detailing-booking/internal/wizard"
)

// FallbackMessage is shown when the backend gives no message of its own.
const FallbackMessage = "Something went wrong, please try again."

// Creator is the slice of the backend client a Submitter needs.
type Creator interface {
	CreateBooking(ctx context.Context, req model.CreateBookingRequest) (int64, error)
}

// Result is the outcome of a submission. Exactly one of Redirect or Message
// is set.
type Result struct {
	BookingID int64             `json:"booking_id,omitempty"`
	Redirect  string            `json:"redirect,omitempty"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// OK reports whether the booking was created.
func (r Result) OK() bool { return r.BookingID != 0 }

// Submitter posts bookings. It never retries.
type Submitter struct {
	backend Creator
	loc     *time.Location
	logger  *zap.Logger
}

func NewSubmitter(c Creator, loc *time.Location, logger *zap.Logger) *Submitter {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{backend: c, loc: loc, logger: logger}
}

// FormatTime renders t as the backend's timezone-naive local timestamp.
func FormatTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(model.BookingTimeLayout)
}

// ConfirmPath is the confirmation route for a booking.
func ConfirmPath(id int64) string {
	return fmt.Sprintf("/booking/confirm/%d", id)
}

// Submit sends exactly one create request for a complete selection.
func (s *Submitter) Submit(ctx context.Context, sel wizard.Selection) Result {
	if sel.Location == nil || sel.Service == nil || sel.Time == nil || sel.Info == nil {
		return Result{Message: "Please complete every step before submitting."}
	}
	if fields := ValidateInfo(*sel.Info); fields != nil {
		return Result{Message: "Please check your contact details.", Fields: fields}
	}

	req := model.CreateBookingRequest{
		LocationID: sel.Location.ID,
		ServiceID:  sel.Service.ID,
		Time:       FormatTime(*sel.Time, s.loc),
		Info:       TrimInfo(*sel.Info),
	}

	id, err := s.backend.CreateBooking(ctx, req)
	if err != nil {
		s.logger.Warn("booking submission failed",
			zap.Int64("location_id", req.LocationID),
			zap.Int64("service_id", req.ServiceID),
			zap.String("time", req.Time),
			zap.Error(err))
		return Result{Message: backend.Message(err, FallbackMessage)}
	}
	if id == 0 {
		return Result{Message: FallbackMessage}
	}

	s.logger.Info("booking created", zap.Int64("booking_id", id))
	return Result{BookingID: id, Redirect: ConfirmPath(id)}
}
