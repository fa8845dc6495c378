// Package wizard is the four-step booking selection state machine:
// location, service, time, info.
package wizard

import (
	"errors"
	"fmt"
	"time"

	"detailing-booking/internal/model"
)

// Step names one stage of the wizard.
type Step string

const (
	StepLocation Step = "location"
	StepService  Step = "service"
	StepTime     Step = "time"
	StepInfo     Step = "info"
)

// Steps is the fixed step order.
var Steps = []Step{StepLocation, StepService, StepTime, StepInfo}

var (
	ErrUnknownStep    = errors.New("wizard: unknown step")
	ErrStepNotReached = errors.New("wizard: step not reached yet")
	ErrInvalidValue   = errors.New("wizard: value does not match step")
)

// Index returns the position of s in Steps, or -1.
func (s Step) Index() int {
	for i, step := range Steps {
		if step == s {
			return i
		}
	}
	return -1
}

// ParseStep validates a step name from a URL or form.
func ParseStep(raw string) (Step, error) {
	s := Step(raw)
	if s.Index() < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownStep, raw)
	}
	return s, nil
}

// Selection accumulates the customer's choices.
type Selection struct {
	Location *model.Location `json:"location,omitempty"`
	Service  *model.Service  `json:"service,omitempty"`
	Time     *time.Time      `json:"time,omitempty"`
	Info     *model.Info     `json:"info,omitempty"`
}

func (s Selection) has(step Step) bool {
	switch step {
	case StepLocation:
		return s.Location != nil
	case StepService:
		return s.Service != nil
	case StepTime:
		return s.Time != nil
	case StepInfo:
		return s.Info != nil
	}
	return false
}

// Wizard tracks the current step and the selection. It is not safe for
// concurrent use.
type Wizard struct {
	current Step
	sel     Selection
}

// New starts a wizard on the location step with nothing selected.
func New() *Wizard {
	return &Wizard{current: StepLocation}
}

func (w *Wizard) Current() Step { return w.current }

func (w *Wizard) Selection() Selection { return w.sel }

// Complete reports whether every step has a value.
func (w *Wizard) Complete() bool {
	for _, s := range Steps {
		if !w.sel.has(s) {
			return false
		}
	}
	return true
}

// SetBookingData stores value for step. The step must already be reached and
// value must have the step's type (*model.Location, *model.Service,
// time.Time, model.Info, or their value/pointer counterparts). Picking a
// different location or service clears the chosen time, since slots depend on
// both.
func (w *Wizard) SetBookingData(step Step, value any) error {
	if step.Index() < 0 {
		return ErrUnknownStep
	}
	if step.Index() > w.current.Index() {
		return ErrStepNotReached
	}

	switch step {
	case StepLocation:
		loc, ok := asLocation(value)
		if !ok {
			return ErrInvalidValue
		}
		if w.sel.Location != nil && w.sel.Location.ID != loc.ID {
			w.sel.Time = nil
		}
		w.sel.Location = loc
	case StepService:
		svc, ok := asService(value)
		if !ok {
			return ErrInvalidValue
		}
		if w.sel.Service != nil && w.sel.Service.ID != svc.ID {
			w.sel.Time = nil
		}
		w.sel.Service = svc
	case StepTime:
		t, ok := asTime(value)
		if !ok {
			return ErrInvalidValue
		}
		w.sel.Time = &t
	case StepInfo:
		info, ok := asInfo(value)
		if !ok {
			return ErrInvalidValue
		}
		w.sel.Info = info
	}
	return nil
}

// NextStep advances one step. It is a no-op on the last step or while the
// current step has no value.
func (w *Wizard) NextStep() bool {
	i := w.current.Index()
	if i >= len(Steps)-1 || !w.sel.has(w.current) {
		return false
	}
	w.current = Steps[i+1]
	return true
}

// PrevStep goes back one step. It is a no-op on the first step.
func (w *Wizard) PrevStep() bool {
	i := w.current.Index()
	if i <= 0 {
		return false
	}
	w.current = Steps[i-1]
	return true
}

// ToStep jumps back to an already visited step. Jumps ahead are rejected.
func (w *Wizard) ToStep(step Step) bool {
	i := step.Index()
	if i < 0 || i > w.current.Index() {
		return false
	}
	w.current = step
	return true
}

func asLocation(v any) (*model.Location, bool) {
	switch x := v.(type) {
	case *model.Location:
		return x, x != nil
	case model.Location:
		return &x, true
	}
	return nil, false
}

func asService(v any) (*model.Service, bool) {
	switch x := v.(type) {
	case *model.Service:
		return x, x != nil
	case model.Service:
		return &x, true
	}
	return nil, false
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, false
		}
		return *x, true
	}
	return time.Time{}, false
}

func asInfo(v any) (*model.Info, bool) {
	switch x := v.(type) {
	case *model.Info:
		return x, x != nil
	case model.Info:
		return &x, true
	}
	return nil, false
}
