package core

import (
	"strings"
	"time"
)

// DateLayout is the canonical storage and input format of expense dates.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseDate parses date text into a calendar date at midnight UTC.
// Time-of-day and offsets, when present, are dropped after reading the
// calendar date written in the text.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return CalendarDate(t), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// FormatDate renders t as YYYY-MM-DD using its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// CalendarDate strips the time of day, keeping the date as seen in t's location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
