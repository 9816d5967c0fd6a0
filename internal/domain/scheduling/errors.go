package scheduling

import (
	"errors"
	"fmt"
)

var (
	ErrClinicClosed      = errors.New("clinic is closed on the requested date")
	ErrPastDateTime      = errors.New("requested date and time has already passed")
	ErrSlotConflict      = errors.New("requested slot conflicts with an existing appointment")
	ErrMissingReason     = errors.New("a reason is required")
	ErrInvalidTransition = errors.New("invalid appointment transition")
	ErrStoreUnavailable  = errors.New("appointment store unavailable")
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidTimeFormat = errors.New("time must be HH:MM")
	ErrInvalidDate       = errors.New("date must be YYYY-MM-DD")
	ErrInvalidInput      = errors.New("invalid input")
)

// SlotConflictError names the existing appointment slot that blocked a booking.
type SlotConflictError struct {
	Date string
	Time string
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("the %s slot on %s is already taken", e.Time, e.Date)
}

func (e *SlotConflictError) Is(target error) bool { return target == ErrSlotConflict }

// TransitionError describes a rejected state change.
type TransitionError struct {
	From  Status
	Event Event
	Actor Actor
}

func (e *TransitionError) Error() string {
	from := string(e.From)
	if from == "" {
		from = "new"
	}
	return fmt.Sprintf("cannot %s a %s appointment as %s", e.Event, from, e.Actor)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func storeErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
