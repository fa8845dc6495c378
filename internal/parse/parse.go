package parse

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	slotRe  = regexp.MustCompile(`^(\d{2}):(\d{2})(?::(\d{2}))?$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9(][0-9 \-()]{6,18}[0-9]$`)
)

const (
	MonthLayout = "2006-01"
	DateLayout  = "2006-01-02"
	SlotLayout  = "15:04:05"
)

// Month parses a month-picker value (YYYY-MM) into day 1 of that month in loc.
func Month(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(MonthLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", raw, err)
	}
	return t, nil
}

// Date parses YYYY-MM-DD into local midnight.
func Date(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}

// SlotTime parses a slot start (HH:MM:SS, seconds optional) and places it on day.
func SlotTime(raw string, day time.Time) (time.Time, error) {
	m := slotRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid slot time %q", raw)
	}
	normalized := m[1] + ":" + m[2] + ":00"
	if m[3] != "" {
		normalized = m[1] + ":" + m[2] + ":" + m[3]
	}
	clock, err := time.Parse(SlotLayout, normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot time %q: %w", raw, err)
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, clock.Hour(), clock.Minute(), clock.Second(), 0, day.Location()), nil
}

// ValidPhone accepts digits with optional leading +, spaces, dashes and parentheses.
func ValidPhone(s string) bool {
	return phoneRe.MatchString(strings.TrimSpace(s))
}
