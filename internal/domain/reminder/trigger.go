// Package reminder derives "starting soon" and "status changed" alerts from
// appointment state and delivers them through the notification channel.
package reminder

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vetclinic/vetclinic/internal/domain/scheduling"
)

// Window is how far ahead of its start an appointment counts as starting soon.
const Window = 60 * time.Minute

// Alert is a derived, human-readable notice about one appointment.
type Alert struct {
	AppointmentID uuid.UUID               `json:"appointment_id"`
	Status        scheduling.Status       `json:"status"`
	PetName       string                  `json:"pet_name"`
	Date          string                  `json:"date"`
	Time          string                  `json:"time"`
	Message       string                  `json:"message"`
	Appointment   *scheduling.Appointment `json:"-"`
}

// ReminderSet records which appointments already produced a starting-soon
// alert. It is owned by the caller and not safe for concurrent use.
type ReminderSet struct {
	ids map[uuid.UUID]struct{}
}

func NewReminderSet() *ReminderSet {
	return &ReminderSet{ids: make(map[uuid.UUID]struct{})}
}

func (s *ReminderSet) Has(id uuid.UUID) bool {
	_, ok := s.ids[id]
	return ok
}

// Add flags id and reports whether it was newly added.
func (s *ReminderSet) Add(id uuid.UUID) bool {
	if s.Has(id) {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *ReminderSet) Len() int { return len(s.ids) }

// Upcoming returns the Approved appointments whose start lies in
// [now, now+Window], earliest first. Rows with malformed dates are skipped.
func Upcoming(now time.Time, loc *time.Location, appts []*scheduling.Appointment) []*scheduling.Appointment {
	var out []*scheduling.Appointment
	until := now.Add(Window)
	for _, a := range appts {
		if a == nil || a.Status != scheduling.StatusApproved {
			continue
		}
		start, err := scheduling.StartOf(a.Date, a.Time, loc)
		if err != nil {
			continue
		}
		if start.Before(now) || start.After(until) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

// StartingSoon emits one alert per upcoming appointment not yet in flagged
// and flags it, so repeated calls with the same set alert at most once.
func StartingSoon(now time.Time, loc *time.Location, appts []*scheduling.Appointment, flagged *ReminderSet) []Alert {
	var alerts []Alert
	for _, a := range Upcoming(now, loc, appts) {
		if !flagged.Add(a.ID) {
			continue
		}
		alerts = append(alerts, startingSoonAlert(a))
	}
	return alerts
}

func startingSoonAlert(a *scheduling.Appointment) Alert {
	return newAlert(a, fmt.Sprintf("%s's appointment starts at %s on %s.", a.PetName, a.Time, a.Date))
}

// StatusAlerts returns an alert for every appointment that has left Pending
// and whose latest change the owner has not seen.
func StatusAlerts(appts []*scheduling.Appointment) []Alert {
	var alerts []Alert
	for _, a := range appts {
		if a == nil || a.Status == scheduling.StatusPending || a.IsSeenByOwner {
			continue
		}
		alerts = append(alerts, newAlert(a, StatusMessage(a)))
	}
	return alerts
}

// StatusMessage summarises an appointment's current status for its owner.
func StatusMessage(a *scheduling.Appointment) string {
	msg := fmt.Sprintf("Your appointment for %s on %s at %s is now %s.", a.PetName, a.Date, a.Time, a.Status)
	if detail := statusDetail(a); detail != "" {
		msg += detail
	}
	return msg
}

func statusDetail(a *scheduling.Appointment) string {
	switch {
	case a.Status == scheduling.StatusCancelled && a.CancellationReason != nil && *a.CancellationReason != "":
		return " Reason: " + *a.CancellationReason
	case a.Status == scheduling.StatusApproved && a.FollowUpOf != nil:
		return " This is a follow-up visit."
	}
	return ""
}

func newAlert(a *scheduling.Appointment, msg string) Alert {
	return Alert{
		AppointmentID: a.ID,
		Status:        a.Status,
		PetName:       a.PetName,
		Date:          a.Date,
		Time:          a.Time,
		Message:       msg,
		Appointment:   a,
	}
}

// templateData is the substitution map for the notification templates.
func templateData(a *scheduling.Appointment) map[string]string {
	return map[string]string{
		"pet_name": a.PetName,
		"date":     a.Date,
		"time":     a.Time,
		"reason":   a.Reason,
		"status":   string(a.Status),
		"detail":   statusDetail(a),
	}
}
