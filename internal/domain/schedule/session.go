package schedule

import (
	"fmt"
	"strings"
	"time"
)

// SchoolDays are the weekdays that can hold sessions (five-day week).
var SchoolDays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// ClassSession is one weekly-recurring class.
type ClassSession struct {
	Code    string    `json:"code"`
	Subject string    `json:"subject"`
	Time    TimeOfDay `json:"time"`
}

// Timetable buckets sessions by weekday name ("Monday".."Friday").
type Timetable map[string][]ClassSession

func IsSchoolDay(day time.Weekday) bool {
	return day >= time.Monday && day <= time.Friday
}

// ParseWeekday accepts a full English weekday name, case-insensitive.
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// TodaysSessions returns the bucket for day. Weekends are always empty.
func (t Timetable) TodaysSessions(day time.Weekday) []ClassSession {
	if !IsSchoolDay(day) {
		return nil
	}
	return t[day.String()]
}

// MinutesUntil is signed: negative means the session already started.
func MinutesUntil(now time.Time, s ClassSession) (int, error) {
	start, err := MinutesSinceMidnight(s.Time)
	if err != nil {
		return 0, err
	}
	return start - ClockMinutes(now), nil
}
