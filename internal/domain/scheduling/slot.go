package scheduling

import (
	"regexp"
	"strconv"
	"time"
)

// SlotDuration is the fixed length of a consultation in minutes.
const SlotDuration = 60

const dateLayout = "2006-01-02"

var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// ToMinutes converts a wall-clock "HH:MM" string to minutes since midnight.
func ToMinutes(hhmm string) (int, error) {
	m := timePattern.FindStringSubmatch(hhmm)
	if m == nil {
		return 0, ErrInvalidTimeFormat
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return h*60 + min, nil
}

// SlotInterval returns the half-open interval [start, end) occupied by an
// appointment starting at hhmm.
func SlotInterval(hhmm string) (start, end int, err error) {
	start, err = ToMinutes(hhmm)
	if err != nil {
		return 0, 0, err
	}
	return start, start + SlotDuration, nil
}

// Overlaps reports whether two slots starting at s1 and s2 intersect.
func Overlaps(s1, s2 int) bool {
	return s1 < s2+SlotDuration && s2 < s1+SlotDuration
}

// ParseDate validates a canonical YYYY-MM-DD date in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil || d.Format(dateLayout) != date {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// StartOf returns the instant an appointment at date+hhmm begins in loc.
func StartOf(date, hhmm string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	mins, err := ToMinutes(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), mins/60, mins%60, 0, 0, d.Location()), nil
}
