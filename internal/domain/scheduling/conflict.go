package scheduling

import (
	"github.com/google/uuid"
)

// CheckConflict reports whether a 60-minute slot at date+hhmm overlaps any
// still-relevant appointment in existing. Cancelled appointments and the
// appointment identified by exclude are ignored. existing is expected to hold
// appointments of the same date; others are skipped.
func CheckConflict(date, hhmm string, existing []*Appointment, exclude uuid.UUID) error {
	start, err := ToMinutes(hhmm)
	if err != nil {
		return err
	}
	for _, a := range existing {
		if a == nil || a.Date != date || a.Status == StatusCancelled {
			continue
		}
		if exclude != uuid.Nil && a.ID == exclude {
			continue
		}
		other, err := ToMinutes(a.Time)
		if err != nil {
			// A stored row with a malformed time cannot occupy a slot.
			continue
		}
		if Overlaps(start, other) {
			return &SlotConflictError{Date: a.Date, Time: a.Time}
		}
	}
	return nil
}
