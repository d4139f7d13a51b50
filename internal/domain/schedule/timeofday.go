package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the exclusive upper bound of a minutes-since-midnight value.
const MinutesPerDay = 24 * 60

var timeOfDayPattern = regexp.MustCompile(`(?i)^\s*(\d{1,2}):(\d{2})\s*(AM|PM)\s*$`)

// TimeOfDay is a 12-hour clock string such as "9:05 AM".
type TimeOfDay string

// ParseError reports a malformed time-of-day or calendar date.
type ParseError struct {
	Kind   string // "time" or "date"
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s %q: %s", e.Kind, e.Input, e.Reason)
}

// MinutesSinceMidnight converts "H:MM AM|PM" (case-insensitive) into 0..1439.
func MinutesSinceMidnight(t TimeOfDay) (int, error) {
	m := timeOfDayPattern.FindStringSubmatch(string(t))
	if m == nil {
		return 0, &ParseError{Kind: "time", Input: string(t), Reason: "expected H:MM AM|PM"}
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	if hours < 1 || hours > 12 {
		return 0, &ParseError{Kind: "time", Input: string(t), Reason: "hour out of range"}
	}
	if minutes > 59 {
		return 0, &ParseError{Kind: "time", Input: string(t), Reason: "minute out of range"}
	}

	hours %= 12
	if strings.EqualFold(m[3], "PM") {
		hours += 12
	}
	return hours*60 + minutes, nil
}

// FromMinutes is the inverse of MinutesSinceMidnight.
func FromMinutes(minutes int) (TimeOfDay, error) {
	if minutes < 0 || minutes >= MinutesPerDay {
		return "", fmt.Errorf("minutes since midnight out of range: %d", minutes)
	}
	h, m := minutes/60, minutes%60
	meridiem := "AM"
	if h >= 12 {
		meridiem = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return TimeOfDay(fmt.Sprintf("%d:%02d %s", h, m, meridiem)), nil
}

// From24Hour converts an "HH:MM" 24-hour string into a TimeOfDay.
func From24Hour(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return "", &ParseError{Kind: "time", Input: s, Reason: "expected HH:MM (24-hour)"}
	}
	return FromMinutes(parsed.Hour()*60 + parsed.Minute())
}

// ClockMinutes returns the local minutes-since-midnight of an instant.
func ClockMinutes(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}
