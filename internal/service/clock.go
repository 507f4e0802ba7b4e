package service

import "time"

// Clock yields the current calendar day in a fixed time zone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

// FixedClock always reports now. Useful for jobs replayed for a given day.
func FixedClock(now time.Time) Clock {
	return Clock{
		Now:      func() time.Time { return now },
		Location: now.Location(),
	}
}

// Today returns the current day as a UTC midnight date.
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return CalendarDate(now().In(loc))
}

// CalendarDate drops the clock part of t, keeping its wall-clock year, month and day.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsCalendarDate reports whether t carries a date only, with no time of day.
func IsCalendarDate(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

func daysBetween(from, to time.Time) int {
	return int(CalendarDate(to).Sub(CalendarDate(from)).Hours() / 24)
}
