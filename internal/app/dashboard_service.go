package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"uniportal_bot/internal/domain/dashboard"
	"uniportal_bot/internal/domain/grades"
	"uniportal_bot/internal/domain/notification"
	"uniportal_bot/internal/domain/schedule"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Custom application-level errors for dashboard edits
var (
	ErrNotSchoolDay  = errors.New("classes can only be scheduled Monday to Friday")
	ErrClassConflict = errors.New("another class is already scheduled at that time")
	ErrClassNotFound = errors.New("class not found")
	ErrExamInPast    = errors.New("exam date must be today or later")
	ErrExamNotFound  = errors.New("exam not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNoteNotFound  = errors.New("note not found")

	// ErrNotSaved means the edit is applied in memory but was not persisted.
	ErrNotSaved = errors.New("dashboard edit not persisted")
)

const untitledNote = "Untitled Note"

// Profile is the student's identity shown on the dashboard.
type Profile struct {
	UserName        string
	StudentID       string
	Major           string
	Email           string
	CurrentSemester int
}

// ExamCountdown pairs an exam with its remaining calendar days.
type ExamCountdown struct {
	Exam     schedule.ExamRecord
	DaysLeft int
}

// DashboardService owns the in-memory dashboard state and writes it through to the
// repository after every edit.
type DashboardService struct {
	repo    dashboard.Repository
	logger  *logrus.Entry
	nowFunc func() time.Time

	mu    sync.Mutex
	state *dashboard.State
}

func NewDashboardService(ctx context.Context, repo dashboard.Repository, logger *logrus.Entry) (*DashboardService, error) {
	state, err := repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, dashboard.ErrNotFound) {
			return nil, fmt.Errorf("failed to load dashboard state: %w", err)
		}
		logger.Info("No saved dashboard state, starting with a fresh one")
		state = dashboard.NewState()
	}
	if state.Timetable == nil {
		state.Timetable = schedule.Timetable{}
	}
	return &DashboardService{repo: repo, logger: logger, nowFunc: time.Now, state: state}, nil
}

func (s *DashboardService) saveLocked(ctx context.Context) error {
	if err := s.repo.Save(ctx, s.state); err != nil {
		return fmt.Errorf("%w: %w", ErrNotSaved, err)
	}
	return nil
}

// Snapshot returns a copy of the timetable and exams for one evaluation pass.
func (s *DashboardService) Snapshot(ctx context.Context) schedule.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	tt := make(schedule.Timetable, len(s.state.Timetable))
	for day, sessions := range s.state.Timetable {
		tt[day] = append([]schedule.ClassSession(nil), sessions...)
	}
	return schedule.Snapshot{
		Timetable: tt,
		Exams:     append([]schedule.ExamRecord(nil), s.state.Exams...),
	}
}

// AddClass schedules a weekly session. time24 is "HH:MM".
func (s *DashboardService) AddClass(ctx context.Context, dayName, time24, code, subject string) (schedule.ClassSession, error) {
	day, err := schedule.ParseWeekday(dayName)
	if err != nil {
		return schedule.ClassSession{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !schedule.IsSchoolDay(day) {
		return schedule.ClassSession{}, ErrNotSchoolDay
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	subject = strings.TrimSpace(subject)
	if code == "" || subject == "" {
		return schedule.ClassSession{}, fmt.Errorf("%w: code and subject are required", ErrInvalidInput)
	}
	tod, err := schedule.From24Hour(time24)
	if err != nil {
		return schedule.ClassSession{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	start, _ := schedule.MinutesSinceMidnight(tod)

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.state.Timetable[day.String()]
	for _, existing := range bucket {
		if m, err := schedule.MinutesSinceMidnight(existing.Time); err == nil && m == start {
			return existing, fmt.Errorf("%w: %s at %s on %s", ErrClassConflict, existing.Code, existing.Time, day)
		}
	}

	session := schedule.ClassSession{Code: code, Subject: subject, Time: tod}
	bucket = append(bucket, session)
	sort.SliceStable(bucket, func(i, j int) bool {
		a, errA := schedule.MinutesSinceMidnight(bucket[i].Time)
		b, errB := schedule.MinutesSinceMidnight(bucket[j].Time)
		if errA != nil || errB != nil {
			return errB != nil && errA == nil
		}
		return a < b
	})
	s.state.Timetable[day.String()] = bucket

	s.logger.WithFields(logrus.Fields{"class_code": code, "day": day.String(), "time": tod}).Info("Class added")
	return session, s.saveLocked(ctx)
}

// RemoveClass deletes the session matching code and time on the given day.
func (s *DashboardService) RemoveClass(ctx context.Context, dayName, code string, t schedule.TimeOfDay) error {
	day, err := schedule.ParseWeekday(dayName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	target, err := schedule.MinutesSinceMidnight(t)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.state.Timetable[day.String()]
	kept := bucket[:0:0]
	for _, cls := range bucket {
		m, err := schedule.MinutesSinceMidnight(cls.Time)
		if strings.EqualFold(cls.Code, code) && err == nil && m == target {
			continue
		}
		kept = append(kept, cls)
	}
	if len(kept) == len(bucket) {
		return ErrClassNotFound
	}
	if len(kept) == 0 {
		delete(s.state.Timetable, day.String())
	} else {
		s.state.Timetable[day.String()] = kept
	}
	return s.saveLocked(ctx)
}

// AddExam records an exam dated today or later. dateStr is "YYYY-MM-DD".
func (s *DashboardService) AddExam(ctx context.Context, name, dateStr string) (schedule.ExamRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return schedule.ExamRecord{}, fmt.Errorf("%w: exam name is required", ErrInvalidInput)
	}
	date, err := schedule.ParseCalendarDate(strings.TrimSpace(dateStr))
	if err != nil {
		return schedule.ExamRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if date.Before(schedule.DateOf(s.nowFunc())) {
		return schedule.ExamRecord{}, ErrExamInPast
	}

	exam := schedule.ExamRecord{ID: uuid.NewString(), Name: name, Date: date}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Exams = append(s.state.Exams, exam)
	s.logger.WithFields(logrus.Fields{"exam_id": exam.ID, "date": date.String()}).Info("Exam added")
	return exam, s.saveLocked(ctx)
}

func (s *DashboardService) RemoveExam(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, exam := range s.state.Exams {
		if exam.ID == id {
			s.state.Exams = append(s.state.Exams[:i], s.state.Exams[i+1:]...)
			return s.saveLocked(ctx)
		}
	}
	return ErrExamNotFound
}

// UpcomingExams lists exams dated today or later, soonest first.
func (s *DashboardService) UpcomingExams(today schedule.CalendarDate) []ExamCountdown {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ExamCountdown
	for _, exam := range s.state.Exams {
		days := schedule.DaysUntil(today, exam)
		if days < 0 {
			continue
		}
		out = append(out, ExamCountdown{Exam: exam, DaysLeft: days})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysLeft < out[j].DaysLeft })
	return out
}

// LoadFeed implements notification.FeedStore.
func (s *DashboardService) LoadFeed(ctx context.Context) ([]notification.FeedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.FeedEntry(nil), s.state.Notifications...), nil
}

// SaveFeed implements notification.FeedStore.
func (s *DashboardService) SaveFeed(ctx context.Context, feed []notification.FeedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Notifications = append([]notification.FeedEntry{}, feed...)
	return s.saveLocked(ctx)
}

func (s *DashboardService) UserName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UserName
}

func (s *DashboardService) Permission() notification.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.NotificationPermission
}

func (s *DashboardService) SetPermission(ctx context.Context, p notification.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.NotificationPermission = p
	return s.saveLocked(ctx)
}

// AddSemester saves a manually entered semester result.
func (s *DashboardService) AddSemester(ctx context.Context, name string, totalPoints float64, totalUnits int) (grades.Semester, error) {
	name = strings.TrimSpace(name)
	if name == "" || totalUnits <= 0 || totalPoints < 0 {
		return grades.Semester{}, fmt.Errorf("%w: semester needs a name, positive units and non-negative points", ErrInvalidInput)
	}
	sem := grades.Semester{
		Name:        name,
		GPA:         totalPoints / float64(totalUnits),
		TotalPoints: totalPoints,
		TotalUnits:  totalUnits,
		Courses:     []grades.Course{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Semesters = append(s.state.Semesters, sem)
	return sem, s.saveLocked(ctx)
}

// CGPA aggregates every saved semester.
func (s *DashboardService) CGPA() (grades.Result, []grades.Semester) {
	s.mu.Lock()
	defer s.mu.Unlock()
	semesters := append([]grades.Semester(nil), s.state.Semesters...)
	return grades.CalculateCGPA(semesters), semesters
}

func (s *DashboardService) Profile() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Profile{
		UserName:        s.state.UserName,
		StudentID:       s.state.StudentID,
		Major:           s.state.Major,
		Email:           s.state.Email,
		CurrentSemester: s.state.CurrentSemester,
	}
}

// UpdateProfile sets one profile field: name, id, major, email or semester.
func (s *DashboardService) UpdateProfile(ctx context.Context, field, value string) (Profile, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.Profile(), fmt.Errorf("%w: %s cannot be empty", ErrInvalidInput, field)
	}

	s.mu.Lock()
	switch strings.ToLower(field) {
	case "name":
		s.state.UserName = value
	case "id":
		s.state.StudentID = value
	case "major":
		s.state.Major = value
	case "email":
		s.state.Email = value
	case "semester":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			s.mu.Unlock()
			return s.Profile(), fmt.Errorf("%w: semester must be a positive number", ErrInvalidInput)
		}
		s.state.CurrentSemester = n
	default:
		s.mu.Unlock()
		return s.Profile(), fmt.Errorf("%w: unknown profile field %q", ErrInvalidInput, field)
	}
	err := s.saveLocked(ctx)
	s.mu.Unlock()

	s.logger.WithField("field", field).Info("Profile updated")
	return s.Profile(), err
}

// Notes returns the saved notes, newest first.
func (s *DashboardService) Notes() []dashboard.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dashboard.Note(nil), s.state.Notes...)
}

// SaveNote creates a note when id is empty and edits the matching note otherwise.
func (s *DashboardService) SaveNote(ctx context.Context, id, title, content string) (dashboard.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return dashboard.Note{}, fmt.Errorf("%w: note content cannot be empty", ErrInvalidInput)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = untitledNote
	}
	now := s.nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		note := dashboard.Note{ID: uuid.NewString(), Title: title, Content: content, UpdatedAt: now}
		s.state.Notes = append([]dashboard.Note{note}, s.state.Notes...)
		return note, s.saveLocked(ctx)
	}
	for i := range s.state.Notes {
		if s.state.Notes[i].ID == id {
			s.state.Notes[i].Title = title
			s.state.Notes[i].Content = content
			s.state.Notes[i].UpdatedAt = now
			return s.state.Notes[i], s.saveLocked(ctx)
		}
	}
	return dashboard.Note{}, ErrNoteNotFound
}

func (s *DashboardService) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, note := range s.state.Notes {
		if note.ID == id {
			s.state.Notes = append(s.state.Notes[:i], s.state.Notes[i+1:]...)
			return s.saveLocked(ctx)
		}
	}
	return ErrNoteNotFound
}

// SetCourses replaces the courses of the semester in progress and returns their GPA.
func (s *DashboardService) SetCourses(ctx context.Context, courses []grades.Course) (grades.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Courses = append([]grades.Course{}, courses...)
	return grades.CalculateGPA(courses), s.saveLocked(ctx)
}

// Courses returns the courses of the semester in progress.
func (s *DashboardService) Courses() []grades.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]grades.Course(nil), s.state.Courses...)
}

// SaveSemester stores the semester in progress with its courses and starts a new
// one. An empty name becomes "Semester N".
func (s *DashboardService) SaveSemester(ctx context.Context, name string) (grades.Semester, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := grades.CalculateGPA(s.state.Courses)
	if result.TotalUnits == 0 {
		return grades.Semester{}, fmt.Errorf("%w: cannot save an empty semester", ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Semester %d", len(s.state.Semesters)+1)
	}
	sem := grades.Semester{
		Name:        name,
		GPA:         result.GPA,
		TotalPoints: result.TotalPoints,
		TotalUnits:  result.TotalUnits,
		Courses:     s.state.Courses,
	}
	s.state.Semesters = append(s.state.Semesters, sem)
	s.state.Courses = []grades.Course{}
	s.logger.WithFields(logrus.Fields{"semester": name, "gpa": result.GPA}).Info("Semester saved")
	return sem, s.saveLocked(ctx)
}
