package telegram

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"uniportal_bot/internal/app"
	"uniportal_bot/internal/domain/dashboard"
	"uniportal_bot/internal/domain/grades"
	"uniportal_bot/internal/domain/notification"
	"uniportal_bot/internal/domain/schedule"
)

func formatTimetable(tt schedule.Timetable) string {
	var sb strings.Builder
	sb.WriteString("📅 Weekly timetable\n")
	empty := true
	for _, day := range schedule.SchoolDays {
		sessions := tt[day.String()]
		if len(sessions) == 0 {
			continue
		}
		empty = false
		fmt.Fprintf(&sb, "\n%s\n", day)
		for _, s := range sessions {
			fmt.Fprintf(&sb, "  %s  %s (%s)\n", s.Time, s.Code, s.Subject)
		}
	}
	if empty {
		return "No classes scheduled. Add one with /add_class."
	}
	return sb.String()
}

func formatToday(now time.Time, tt schedule.Timetable) string {
	sessions := append([]schedule.ClassSession(nil), tt.TodaysSessions(now.Weekday())...)
	if len(sessions) == 0 {
		return "No classes today 🎉"
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		a, _ := schedule.MinutesSinceMidnight(sessions[i].Time)
		b, _ := schedule.MinutesSinceMidnight(sessions[j].Time)
		return a < b
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Today (%s)\n", now.Weekday())
	for _, s := range sessions {
		until, err := schedule.MinutesUntil(now, s)
		status := ""
		switch {
		case err != nil:
			status = "invalid time"
		case until > 0:
			status = fmt.Sprintf("in %d min", until)
		default:
			status = "started"
		}
		fmt.Fprintf(&sb, "  %s  %s (%s), %s\n", s.Time, s.Code, s.Subject, status)
	}
	return sb.String()
}

func formatExams(exams []app.ExamCountdown) string {
	if len(exams) == 0 {
		return "No upcoming exams. Add one with /add_exam."
	}
	var sb strings.Builder
	sb.WriteString("📝 Upcoming exams\n")
	for _, e := range exams {
		var when string
		switch e.DaysLeft {
		case 0:
			when = "TODAY"
		case 1:
			when = "tomorrow"
		default:
			when = fmt.Sprintf("in %d days", e.DaysLeft)
		}
		fmt.Fprintf(&sb, "  %s on %s, %s\n    id: %s\n", e.Exam.Name, e.Exam.Date, when, e.Exam.ID)
	}
	return sb.String()
}

func formatFeed(entries []notification.FeedEntry) string {
	if len(entries) == 0 {
		return "No notifications yet."
	}
	var sb strings.Builder
	sb.WriteString("🔔 Recent notifications\n")
	for _, e := range entries {
		label := e.Label
		if label == "" {
			label = e.FiredAt.Format("Mon 3:04 PM")
		}
		fmt.Fprintf(&sb, "  [%s] %s\n", label, e.Message)
	}
	return sb.String()
}

// parseCourses reads "CODE:GRADE:UNITS" arguments.
func parseCourses(args []string) ([]grades.Course, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no courses given")
	}
	courses := make([]grades.Course, 0, len(args))
	for _, arg := range args {
		parts := strings.Split(arg, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%q is not CODE:GRADE:UNITS", arg)
		}
		grade := strings.ToUpper(parts[1])
		if _, ok := grades.GradePoints[grade]; !ok {
			return nil, fmt.Errorf("unknown grade %q in %q", parts[1], arg)
		}
		units, err := strconv.Atoi(parts[2])
		if err != nil || units <= 0 {
			return nil, fmt.Errorf("units must be a positive number in %q", arg)
		}
		courses = append(courses, grades.Course{Code: strings.ToUpper(parts[0]), Grade: grade, Units: units})
	}
	return courses, nil
}

func formatResult(label string, r grades.Result) string {
	return fmt.Sprintf("%s: %.2f (%s)\nPoints %.1f over %d units", label, r.GPA, grades.Standing(r.GPA), r.TotalPoints, r.TotalUnits)
}

const notePreviewLen = 100

func formatNotes(notes []dashboard.Note) string {
	if len(notes) == 0 {
		return "No notes saved yet. Add one with /note."
	}
	var sb strings.Builder
	sb.WriteString("🗒 Notes\n")
	for _, n := range notes {
		preview := []rune(n.Content)
		text := string(preview)
		if len(preview) > notePreviewLen {
			text = strings.TrimSpace(string(preview[:notePreviewLen])) + "..."
		}
		fmt.Fprintf(&sb, "\n%s (%s)\n%s\n  id: %s\n", n.Title, n.UpdatedAt.Format("Jan 2, 2006"), text, n.ID)
	}
	return sb.String()
}

// parseNote splits "Title | text". Without a separator everything is the text.
func parseNote(args []string) (title, content string) {
	joined := strings.Join(args, " ")
	if before, after, ok := strings.Cut(joined, "|"); ok {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}
	return "", strings.TrimSpace(joined)
}

func formatProfile(p app.Profile) string {
	orDash := func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	}
	return fmt.Sprintf("👤 %s\nStudent ID: %s\nMajor: %s\nEmail: %s\nSemester: %d",
		orDash(p.UserName), orDash(p.StudentID), orDash(p.Major), orDash(p.Email), p.CurrentSemester)
}

// editReply warns when an edit was applied but could not be written to storage.
func editReply(done string, err error) string {
	if errors.Is(err, app.ErrNotSaved) {
		return done + "\n⚠️ Applied for now, but saving failed. It may be lost after a restart."
	}
	return done
}

func testReply(route notification.Route, permission notification.Permission) string {
	switch route {
	case notification.RouteAgent:
		return "Test notification handed to the background agent."
	case notification.RouteDirect:
		return "Test notification sent."
	default:
		return fmt.Sprintf("Test notification recorded in /notifications only (permission: %s).", permission)
	}
}
