package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// CalendarDate is a timezone-naive Y-M-D value, interpreted at local midnight.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

func ParseCalendarDate(s string) (CalendarDate, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return CalendarDate{}, &ParseError{Kind: "date", Input: s, Reason: "expected YYYY-MM-DD"}
	}
	return DateOf(t), nil
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CalendarDate) IsZero() bool {
	return d == CalendarDate{}
}

// Midnight returns the start of the date in loc.
func (d CalendarDate) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// NextMidnight returns the local midnight that starts the day after t.
func NextMidnight(t time.Time) time.Time {
	return DateOf(t).AddDays(1).Midnight(t.Location())
}

func (d CalendarDate) AddDays(n int) CalendarDate {
	return DateOf(d.Midnight(time.UTC).AddDate(0, 0, n))
}

func (d CalendarDate) Before(other CalendarDate) bool {
	return DaysBetween(d, other) > 0
}

// DaysBetween counts whole calendar days from 'from' to 'to'. Both sides are
// placed at UTC midnight so DST transitions never yield 23 or 25 hour days.
func DaysBetween(from, to CalendarDate) int {
	diff := to.Midnight(time.UTC).Sub(from.Midnight(time.UTC))
	return int(diff / (24 * time.Hour))
}

func (d CalendarDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("calendar date must be a string: %w", err)
	}
	parsed, err := ParseCalendarDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
