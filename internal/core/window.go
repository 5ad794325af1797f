package core

import (
	"fmt"
	"strings"
	"time"
)

// Window selects which records are visible and aggregated.
type Window string

const (
	WindowAll   Window = "ALL"
	WindowWeek  Window = "WEEK"
	WindowMonth Window = "MONTH"
)

// Windows lists the filters in display order.
var Windows = []Window{WindowAll, WindowWeek, WindowMonth}

// ParseWindow reads a window name case-insensitively. Blank means ALL.
func ParseWindow(s string) (Window, error) {
	switch Window(strings.ToUpper(strings.TrimSpace(s))) {
	case "", WindowAll:
		return WindowAll, nil
	case WindowWeek:
		return WindowWeek, nil
	case WindowMonth:
		return WindowMonth, nil
	default:
		return "", fmt.Errorf("unknown window %q", s)
	}
}

// Label returns the human caption of the window.
func (w Window) Label() string {
	switch w {
	case WindowWeek:
		return "This Week"
	case WindowMonth:
		return "This Month"
	default:
		return "All"
	}
}

// SameMonth reports whether both dates fall in the same calendar year and month.
func SameMonth(candidate, reference time.Time) bool {
	return candidate.Year() == reference.Year() && candidate.Month() == reference.Month()
}

// SameWeek reports whether both dates fall in the same year and the same
// seven-day block counted from January 1st of that year. Block 0 always
// starts on Jan 1 whatever the weekday, so Dec 31 and the following Jan 1
// are never in the same week.
func SameWeek(candidate, reference time.Time) bool {
	if candidate.Year() != reference.Year() {
		return false
	}
	return weekIndex(candidate) == weekIndex(reference)
}

func weekIndex(t time.Time) int {
	return (t.YearDay() - 1) / 7
}

// Includes reports whether e belongs to the window relative to today.
// Records without a usable date only belong to ALL.
func (w Window) Includes(e Expense, today time.Time) bool {
	if w == WindowAll {
		return true
	}
	day, ok := e.Day()
	if !ok {
		return false
	}
	today = CalendarDate(today)
	switch w {
	case WindowWeek:
		return SameWeek(day, today)
	case WindowMonth:
		return SameMonth(day, today)
	default:
		return true
	}
}

// FilterByWindow returns the records inside the window, keeping their order.
func FilterByWindow(records []Expense, w Window, today time.Time) []Expense {
	out := make([]Expense, 0, len(records))
	for _, e := range records {
		if w.Includes(e, today) {
			out = append(out, e)
		}
	}
	return out
}
