package admin

import (
	"errors"

	"detailing-booking/internal/model"
)

// Action is a status transition offered on a booking row.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// Actions lists the row actions in display order.
var Actions = []Action{ActionConfirm, ActionComplete, ActionCancel}

var (
	ErrUnknownAction  = errors.New("admin: unknown action")
	ErrActionDisabled = errors.New("admin: booking already has that status")
	ErrUnknownBooking = errors.New("admin: booking not in the current list")
)

// ParseAction validates an action name.
func ParseAction(raw string) (Action, error) {
	switch a := Action(raw); a {
	case ActionConfirm, ActionComplete, ActionCancel:
		return a, nil
	}
	return "", ErrUnknownAction
}

// Target is the status the action moves a booking to.
func (a Action) Target() model.BookingStatus {
	switch a {
	case ActionConfirm:
		return model.StatusConfirmed
	case ActionComplete:
		return model.StatusCompleted
	case ActionCancel:
		return model.StatusCancelled
	}
	return ""
}

// ActionEnabled is false when the booking is already in the action's status.
func ActionEnabled(b model.Booking, a Action) bool {
	target := a.Target()
	return target != "" && b.Status != target
}
