package reminder

import (
	"fmt"
	"strings"
	"time"

	"uniportal_bot/internal/domain/schedule"
)

// MarkerKey is the deterministic identity of a fired reminder. It is built only
// from stable identity fields, never from editable text such as a subject name.
type MarkerKey string

// Marker is a stored "already fired" record.
type Marker struct {
	Key     MarkerKey
	FiredAt time.Time
}

// ClassKey identifies (class, weekday, checkpoint). The start minute is part of the
// class identity because the timetable forbids two sessions at the same minute.
func ClassKey(s schedule.ClassSession, startMinute int, day time.Weekday, checkpoint int) MarkerKey {
	return MarkerKey(fmt.Sprintf("%s:%s@%d:%s:%d", DomainClass, normalizeCode(s.Code), startMinute, day, checkpoint))
}

// SummaryKey identifies the once-daily class summary.
func SummaryKey(date schedule.CalendarDate) MarkerKey {
	return MarkerKey(fmt.Sprintf("%s:%s", DomainSummary, date))
}

// ExamKey identifies (exam id, days-before checkpoint).
func ExamKey(examID string, daysBefore int) MarkerKey {
	return MarkerKey(fmt.Sprintf("%s:%s:%d", DomainExam, examID, daysBefore))
}

// PruneKey gates durable-marker pruning to once per calendar day.
func PruneKey(date schedule.CalendarDate) MarkerKey {
	return MarkerKey(fmt.Sprintf("%s:prune:%s", DomainMaintenance, date))
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
