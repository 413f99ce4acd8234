package timeline

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	DateLayout,
	"02.01.2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
}

var clockLayouts = []string{
	ClockLayout,
	"15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"3:04 PM",
	"3:04:05 PM",
}

// ParseDate reads a date cell in any of the formats exports use.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseClock reads a time-of-day cell and returns hours and minutes.
func ParseClock(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), true
		}
	}
	return 0, 0, false
}

// CanonicalDate returns the cell as "2006-01-02", or "" when unreadable.
func CanonicalDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return t.Format(DateLayout)
}

// CanonicalClock returns the cell as "15:04", or "" when unreadable.
func CanonicalClock(s string) string {
	h, m, ok := ParseClock(s)
	if !ok {
		return ""
	}
	return time.Date(0, 1, 1, h, m, 0, 0, time.UTC).Format(ClockLayout)
}

// Combine joins a date and a time-of-day into one UTC wall-clock instant.
func Combine(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC)
}
