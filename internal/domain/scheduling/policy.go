package scheduling

import (
	"time"
)

// Policy holds clinic-wide calendar rules applied before conflict checking.
type Policy struct {
	Location   *time.Location
	ClosedDays []time.Weekday
}

// DefaultPolicy closes the clinic on Saturdays and evaluates times in the
// server's local zone.
func DefaultPolicy() Policy {
	return Policy{Location: time.Local, ClosedDays: []time.Weekday{time.Saturday}}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

func (p Policy) isClosed(d time.Weekday) bool {
	for _, c := range p.ClosedDays {
		if c == d {
			return true
		}
	}
	return false
}

// CheckBooking validates a candidate for an owner booking or reschedule.
func (p Policy) CheckBooking(date, hhmm string, now time.Time) error {
	return p.check(date, hhmm, now, true)
}

// CheckWalkIn validates a staff walk-in. Walk-ins are not checked against
// the current time; only the closed-day rule applies.
func (p Policy) CheckWalkIn(date, hhmm string) error {
	return p.check(date, hhmm, time.Time{}, false)
}

func (p Policy) check(date, hhmm string, now time.Time, rejectPast bool) error {
	start, err := StartOf(date, hhmm, p.location())
	if err != nil {
		return err
	}
	if p.isClosed(start.Weekday()) {
		return ErrClinicClosed
	}
	if rejectPast && start.Before(now) {
		return ErrPastDateTime
	}
	return nil
}
