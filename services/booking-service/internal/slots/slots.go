// Package slots enumerates the bookable half-hour start times. Business
// hours only, lunch excluded.
package slots

import (
	"errors"
	"time"
)

var times = []string{
	"08:00", "08:30", "09:00", "09:30", "10:00", "10:30",
	"11:00", "11:30", "13:00", "13:30", "14:00", "14:30",
	"15:00", "15:30", "16:00", "16:30",
}

var (
	ErrDateInPast  = errors.New("date must not be in the past")
	ErrInvalidSlot = errors.New("time is not an offered slot")
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
)

// List returns every slot label for one calendar day. Slots of the current
// day that already started (per now's location) are filtered out.
func List(date string, now time.Time) ([]string, error) {
	day, err := time.ParseInLocation("2006-01-02", date, now.Location())
	if err != nil {
		return nil, ErrInvalidDate
	}
	if day.Before(today(now)) {
		return nil, ErrDateInPast
	}

	if !day.Equal(today(now)) {
		out := make([]string, len(times))
		copy(out, times)
		return out, nil
	}

	var out []string
	for _, label := range times {
		start, _ := Combine(date, label, now.Location())
		if start.After(now) {
			out = append(out, label)
		}
	}
	return out, nil
}

// Validate checks a date+time pair against the slot list and the "not in
// the past" guard. The past check compares calendar days in now's location,
// so today with an earlier clock time is still accepted.
func Validate(date, slot string, now time.Time) error {
	day, err := time.ParseInLocation("2006-01-02", date, now.Location())
	if err != nil {
		return ErrInvalidDate
	}
	if day.Before(today(now)) {
		return ErrDateInPast
	}
	for _, label := range times {
		if label == slot {
			return nil
		}
	}
	return ErrInvalidSlot
}

// Combine joins a date and a slot label into one timestamp.
func Combine(date, slot string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", date+" "+slot, loc)
}

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
