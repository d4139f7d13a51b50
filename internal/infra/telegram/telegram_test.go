package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"uniportal_bot/internal/app"
	"uniportal_bot/internal/domain/dashboard"
	"uniportal_bot/internal/domain/notification"
	"uniportal_bot/internal/domain/schedule"
	"uniportal_bot/internal/infra/memory"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type sentMessage struct {
	chatID  int64
	text    string
	options *telebot.SendOptions
}

type fakeClient struct {
	sent []sentMessage
	err  error
}

func (c *fakeClient) SendMessage(_ context.Context, chatID int64, text string, options *telebot.SendOptions) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentMessage{chatID, text, options})
	return nil
}

func TestNotifierEscapesHTML(t *testing.T) {
	client := &fakeClient{}
	n := NewNotifier(client, 42)

	require.NoError(t, n.Notify(context.Background(), "Class Starting Soon!", "CSC301 (R&D <lab>) starts in 10 minutes at 9:00 AM"))
	require.Len(t, client.sent, 1)
	assert.Equal(t, int64(42), client.sent[0].chatID)
	assert.Equal(t, "🔔 <b>Class Starting Soon!</b>\nCSC301 (R&amp;D &lt;lab&gt;) starts in 10 minutes at 9:00 AM", client.sent[0].text)
	assert.Equal(t, telebot.ModeHTML, client.sent[0].options.ParseMode)

	client.err = errors.New("flood wait")
	assert.Error(t, n.Notify(context.Background(), "t", "b"))
}

func TestPermissionPrompter(t *testing.T) {
	ctx := context.Background()
	svc, err := app.NewDashboardService(ctx, memory.NewDashboardRepository(), logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	client := &fakeClient{}
	p := NewPermissionPrompter(app.NewStoredPermissionProbe(svc, notification.PermissionDefault), client, 42)

	state, err := p.Query(ctx)
	require.NoError(t, err)
	assert.Equal(t, notification.PermissionDefault, state)

	state, err = p.Request(ctx)
	require.NoError(t, err)
	assert.Equal(t, notification.PermissionDefault, state, "the answer arrives through the buttons")
	require.Len(t, client.sent, 1)
	assert.Same(t, permissionMenu, client.sent[0].options.ReplyMarkup)
	require.Len(t, permissionMenu.InlineKeyboard, 1)
	assert.Len(t, permissionMenu.InlineKeyboard[0], 2)

	client.err = errors.New("blocked by user")
	_, err = p.Request(ctx)
	assert.Error(t, err)
}

func TestFormatTimetable(t *testing.T) {
	assert.Contains(t, formatTimetable(schedule.Timetable{}), "No classes scheduled")

	out := formatTimetable(schedule.Timetable{
		"Wednesday": {{Code: "MTH201", Subject: "Calculus", Time: "11:00 AM"}},
		"Monday":    {{Code: "CSC301", Subject: "Data Structures", Time: "9:00 AM"}},
	})
	assert.Less(t, strings.Index(out, "Monday"), strings.Index(out, "Wednesday"), "days are listed in week order")
	assert.Contains(t, out, "9:00 AM  CSC301 (Data Structures)")
}

func TestFormatToday(t *testing.T) {
	now := time.Date(2025, time.March, 3, 8, 30, 0, 0, time.UTC)
	tt := schedule.Timetable{"Monday": {
		{Code: "MTH201", Subject: "Calculus", Time: "10:00 AM"},
		{Code: "CSC301", Subject: "Data Structures", Time: "8:00 AM"},
		{Code: "BAD100", Subject: "Broken", Time: "?"},
	}}
	out := formatToday(now, tt)
	assert.Contains(t, out, "CSC301 (Data Structures), started")
	assert.Contains(t, out, "MTH201 (Calculus), in 90 min")
	assert.Contains(t, out, "BAD100 (Broken), invalid time")

	assert.Equal(t, "No classes today 🎉", formatToday(now.AddDate(0, 0, 5), tt))
}

func TestFormatExams(t *testing.T) {
	assert.Contains(t, formatExams(nil), "No upcoming exams")
	date := schedule.CalendarDate{Year: 2025, Month: time.March, Day: 3}
	out := formatExams([]app.ExamCountdown{
		{Exam: schedule.ExamRecord{ID: "a", Name: "Algebra", Date: date}, DaysLeft: 0},
		{Exam: schedule.ExamRecord{ID: "b", Name: "Physics", Date: date.AddDays(1)}, DaysLeft: 1},
		{Exam: schedule.ExamRecord{ID: "c", Name: "Biology", Date: date.AddDays(9)}, DaysLeft: 9},
	})
	assert.Contains(t, out, "Algebra on 2025-03-03, TODAY")
	assert.Contains(t, out, "Physics on 2025-03-04, tomorrow")
	assert.Contains(t, out, "Biology on 2025-03-12, in 9 days")
	assert.Contains(t, out, "id: c")
}

func TestFormatFeed(t *testing.T) {
	assert.Equal(t, "No notifications yet.", formatFeed(nil))
	at := time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)
	out := formatFeed([]notification.FeedEntry{
		{Message: "labelled", FiredAt: at, Label: "Mon 8:00 AM"},
		{Message: "legacy", FiredAt: at},
	})
	assert.Contains(t, out, "[Mon 8:00 AM] labelled")
	assert.Contains(t, out, "[Mon 8:00 AM] legacy")
}

func TestParseCourses(t *testing.T) {
	courses, err := parseCourses([]string{"csc301:a:3", "MTH201:B:2"})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "CSC301", courses[0].Code)
	assert.Equal(t, "A", courses[0].Grade)
	assert.Equal(t, 3, courses[0].Units)

	for _, bad := range [][]string{nil, {"CSC301"}, {"CSC301:G:3"}, {"CSC301:A:x"}, {"CSC301:A:0"}} {
		_, err := parseCourses(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestParseNote(t *testing.T) {
	title, content := parseNote([]string{"Lab", "prep", "|", "bring", "the", "kit"})
	assert.Equal(t, "Lab prep", title)
	assert.Equal(t, "bring the kit", content)

	title, content = parseNote([]string{"just", "text"})
	assert.Empty(t, title)
	assert.Equal(t, "just text", content)
}

func TestFormatNotes(t *testing.T) {
	assert.Contains(t, formatNotes(nil), "No notes saved yet")

	long := strings.Repeat("ab", 80)
	out := formatNotes([]dashboard.Note{{
		ID:        "n1",
		Title:     "Reading",
		Content:   long,
		UpdatedAt: time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC),
	}})
	assert.Contains(t, out, "Reading (Mar 3, 2025)")
	assert.Contains(t, out, long[:100]+"...")
	assert.NotContains(t, out, long)
	assert.Contains(t, out, "id: n1")
}

func TestFormatProfile(t *testing.T) {
	out := formatProfile(app.Profile{UserName: "Ada Obi", Major: "Physics", CurrentSemester: 2})
	assert.Contains(t, out, "👤 Ada Obi")
	assert.Contains(t, out, "Student ID: -")
	assert.Contains(t, out, "Major: Physics")
	assert.Contains(t, out, "Semester: 2")
}

func TestEditReply(t *testing.T) {
	assert.Equal(t, "Class removed.", editReply("Class removed.", nil))

	out := editReply("Class removed.", fmt.Errorf("%w: disk full", app.ErrNotSaved))
	assert.True(t, strings.HasPrefix(out, "Class removed."))
	assert.Contains(t, out, "saving failed")
}

func TestTestReply(t *testing.T) {
	assert.Equal(t, "Test notification sent.", testReply(notification.RouteDirect, notification.PermissionGranted))
	assert.Contains(t, testReply(notification.RouteAgent, notification.PermissionGranted), "background agent")
	assert.Equal(t,
		"Test notification recorded in /notifications only (permission: denied).",
		testReply(notification.RouteInApp, notification.PermissionDenied))
}
