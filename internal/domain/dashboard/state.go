package dashboard

import (
	"time"

	"uniportal_bot/internal/domain/grades"
	"uniportal_bot/internal/domain/notification"
	"uniportal_bot/internal/domain/schedule"
)

// Note is a free-form note, newest first in State.Notes.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// State is the persisted dashboard blob.
type State struct {
	UserName               string                   `json:"userName"`
	StudentID              string                   `json:"studentId"`
	Major                  string                   `json:"major"`
	Email                  string                   `json:"email"`
	CurrentSemester        int                      `json:"currentSemester"`
	Courses                []grades.Course          `json:"courses"`
	Semesters              []grades.Semester        `json:"semesters"`
	Timetable              schedule.Timetable       `json:"timetable"`
	Notes                  []Note                   `json:"notes"`
	Exams                  []schedule.ExamRecord    `json:"exams"`
	Notifications          []notification.FeedEntry `json:"notifications"`
	NotificationPermission notification.Permission  `json:"notificationPermission,omitempty"`
}

// NewState returns the state used when nothing has been persisted yet.
func NewState() *State {
	return &State{
		UserName:        "New User",
		CurrentSemester: 1,
		Courses:         []grades.Course{},
		Semesters:       []grades.Semester{},
		Timetable:       schedule.Timetable{},
		Notes:           []Note{},
		Exams:           []schedule.ExamRecord{},
		Notifications:   []notification.FeedEntry{},
	}
}
