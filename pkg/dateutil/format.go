// Package dateutil formats record timestamps for display.
package dateutil

import "time"

// DisplayLayout renders a short month, a two-digit day and the full year.
const DisplayLayout = "Jan 02, 2006"

// InvalidDate is rendered for timestamps that cannot be parsed.
const InvalidDate = "Invalid Date"

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Parse reads an ISO-8601 timestamp in any of the accepted layouts.
func Parse(iso string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, iso); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders an ISO-8601 timestamp for display.
func FormatDate(iso string) string {
	t, ok := Parse(iso)
	if !ok {
		return InvalidDate
	}
	return t.Format(DisplayLayout)
}
