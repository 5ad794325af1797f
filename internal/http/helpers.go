package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tally/internal/core"
)

// isHTMX reports whether the request was issued by HTMX rather than a plain form.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// parseID reads the {id} path segment.
func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseWindowParam falls back to ALL for unknown values; it only decides
// where to send the user back to.
func parseWindowParam(v string) core.Window {
	w, err := core.ParseWindow(v)
	if err != nil {
		return core.WindowAll
	}
	return w
}

func screenURL(w core.Window) string {
	if w == core.WindowAll {
		return "/"
	}
	return "/?window=" + url.QueryEscape(string(w))
}

// validationMessage turns a core validation error into text for the form.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a positive number, e.g. 12.50"
	case errors.Is(err, core.ErrEmptyCategory):
		return "Category is required"
	case errors.Is(err, core.ErrEmptyDate):
		return "Date is required"
	case errors.Is(err, core.ErrInvalidDate):
		return "Date must look like YYYY-MM-DD"
	default:
		return "Invalid expense"
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
