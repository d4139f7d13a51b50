package schedule

// ExamRecord is an absolute-date exam. ID is unique and stable.
type ExamRecord struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Date CalendarDate `json:"date"`
}

// DaysUntil is the calendar-day distance from today to the exam; 0 on the exam day,
// negative once it has passed.
func DaysUntil(today CalendarDate, exam ExamRecord) int {
	return DaysBetween(today, exam.Date)
}

// Snapshot is the read-only view of the schedule handed to one evaluation pass.
type Snapshot struct {
	Timetable Timetable
	Exams     []ExamRecord
}
