package presto

import (
	"fmt"
	"time"
)

// Presto delivers temporal values as literals without zero-padding, matching
// the engine's yyyy-M-d H:m:s.SSS format.
const (
	timestampLayout    = "2006-1-2 15:4:5.000"
	timestampWithTZEnd = "2006-1-2 15:4:5.000 MST"
	dateLayout         = "2006-01-02"
)

// ParseTimestamp parses a timestamp literal and interprets the wall-clock
// value as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp literal %q: %w", s, err)
	}
	return asUTC(t), nil
}

// ParseTimestampWithTimeZone parses a timestamp literal with a trailing zone
// abbreviation. The zone token is discarded and the wall-clock value is
// interpreted as UTC, matching the engine adapter's normalization.
func ParseTimestampWithTimeZone(s string) (time.Time, error) {
	t, err := time.Parse(timestampWithTZEnd, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp with time zone literal %q: %w", s, err)
	}
	return asUTC(t), nil
}

// ParseDate parses an ISO-8601 calendar date literal.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date literal %q: %w", s, err)
	}
	return t, nil
}

// asUTC rebuilds t's wall-clock fields in UTC, dropping whatever zone the
// parse attached.
func asUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
