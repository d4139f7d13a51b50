package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"uniportal_bot/internal/domain/reminder"
	"uniportal_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

type examTemplate struct {
	title string
	body  string // %s is the exam name
}

var examTemplates = map[int]examTemplate{
	0:  {"EXAM TODAY!", "%s exam is TODAY! Good luck!"},
	1:  {"EXAM TOMORROW!", "%s exam is TOMORROW. Final review time!"},
	2:  {"2 Days to Exam", "%s exam in 2 days. Prepare well!"},
	5:  {"5 Days to Exam", "%s exam in 5 days. Start intensive revision!"},
	10: {"10 Days to Exam", "%s exam in 10 days. Plan your study schedule."},
	20: {"20 Days to Exam", "%s exam in 20 days. Start early preparation."},
	40: {"40 Days to Exam", "%s exam in 40 days. Mark your calendar!"},
}

// Evaluator computes which reminders are due at an instant. It only reads the
// ledger; the Engine marks each reminder after handing it to delivery.
type Evaluator struct {
	ledger *Ledger
	logger *logrus.Entry
}

func NewEvaluator(ledger *Ledger, logger *logrus.Entry) *Evaluator {
	return &Evaluator{ledger: ledger, logger: logger}
}

type timedSession struct {
	session schedule.ClassSession
	start   int
}

// Evaluate returns the reminders due at now that have not fired yet.
func (e *Evaluator) Evaluate(ctx context.Context, now time.Time, snap schedule.Snapshot) []reminder.Reminder {
	var due []reminder.Reminder
	seen := make(map[reminder.MarkerKey]bool)
	emit := func(r reminder.Reminder) {
		if seen[r.Key] || e.ledger.HasFired(ctx, r.Key, r.Scope) {
			return
		}
		seen[r.Key] = true
		due = append(due, r)
	}

	sessions := e.parseSessions(snap.Timetable.TodaysSessions(now.Weekday()))
	e.classProximity(now, sessions, emit)
	e.dailySummary(now, sessions, emit)
	e.examProximity(now, snap.Exams, emit)
	return due
}

// parseSessions drops sessions with an unparsable time and orders the rest by start.
func (e *Evaluator) parseSessions(sessions []schedule.ClassSession) []timedSession {
	out := make([]timedSession, 0, len(sessions))
	for _, s := range sessions {
		start, err := schedule.MinutesSinceMidnight(s.Time)
		if err != nil {
			e.logger.WithError(err).WithField("class_code", s.Code).Warn("Skipping class with unparsable time")
			continue
		}
		out = append(out, timedSession{session: s, start: start})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

func withinTolerance(minutesUntil, checkpoint int) bool {
	return minutesUntil >= checkpoint-reminder.ClassTolerance && minutesUntil <= checkpoint+reminder.ClassTolerance
}

func checkpointLabel(minutes int) string {
	if minutes == 60 {
		return "1 hour"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

func (e *Evaluator) classProximity(now time.Time, sessions []timedSession, emit func(reminder.Reminder)) {
	nowMinutes := schedule.ClockMinutes(now)
	day := now.Weekday()

	for _, ts := range sessions {
		s := ts.session
		until := ts.start - nowMinutes

		for _, c := range reminder.ClassCheckpoints {
			if !withinTolerance(until, c) {
				continue
			}
			emit(reminder.Reminder{
				Key:    reminder.ClassKey(s, ts.start, day, c),
				Scope:  reminder.ScopeSession,
				Domain: reminder.DomainClass,
				Title:  "Class Starting Soon!",
				Body:   fmt.Sprintf("%s (%s) starts in %s at %s", s.Code, s.Subject, checkpointLabel(c), s.Time),
			})
		}

		if withinTolerance(until, reminder.StartingNowCheckpoint) {
			emit(reminder.Reminder{
				Key:    reminder.ClassKey(s, ts.start, day, reminder.StartingNowCheckpoint),
				Scope:  reminder.ScopeSession,
				Domain: reminder.DomainClass,
				Title:  "Class Starting NOW!",
				Body:   fmt.Sprintf("%s (%s) is starting now at %s", s.Code, s.Subject, s.Time),
			})
		}
	}
}

func (e *Evaluator) dailySummary(now time.Time, sessions []timedSession, emit func(reminder.Reminder)) {
	if now.Hour() != reminder.SummaryHour || len(sessions) == 0 {
		return
	}

	parts := make([]string, 0, len(sessions))
	for _, ts := range sessions {
		parts = append(parts, fmt.Sprintf("%s at %s", ts.session.Code, ts.session.Time))
	}
	plural := ""
	if len(sessions) > 1 {
		plural = "es"
	}

	emit(reminder.Reminder{
		Key:    reminder.SummaryKey(schedule.DateOf(now)),
		Scope:  reminder.ScopeDurable,
		Domain: reminder.DomainSummary,
		Title:  "Today's Classes",
		Body:   fmt.Sprintf("You have %d class%s today: %s", len(sessions), plural, strings.Join(parts, ", ")),
	})
}

func (e *Evaluator) examProximity(now time.Time, exams []schedule.ExamRecord, emit func(reminder.Reminder)) {
	today := schedule.DateOf(now)
	for _, exam := range exams {
		days := schedule.DaysUntil(today, exam)
		if !reminder.IsExamCheckpoint(days) {
			continue
		}
		tpl := examTemplates[days]
		emit(reminder.Reminder{
			Key:    reminder.ExamKey(exam.ID, days),
			Scope:  reminder.ScopeDurable,
			Domain: reminder.DomainExam,
			Title:  tpl.title,
			Body:   fmt.Sprintf(tpl.body, exam.Name),
		})
	}
}
