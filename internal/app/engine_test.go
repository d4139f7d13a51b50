package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"uniportal_bot/internal/domain/reminder"
	"uniportal_bot/internal/domain/schedule"
	"uniportal_bot/internal/infra/memory"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mondayTimetable(sessions ...schedule.ClassSession) schedule.Snapshot {
	return schedule.Snapshot{Timetable: schedule.Timetable{"Monday": sessions}}
}

var csc301 = schedule.ClassSession{Code: "CSC301", Subject: "Data Structures", Time: "9:00 AM"}

func newTestEngine(t *testing.T, snap schedule.Snapshot) (*Engine, *recordingDeliverer, *Ledger) {
	t.Helper()
	logger, _ := newTestLogger()
	ledger, _, _ := newMemoryLedger(logger)
	d := &recordingDeliverer{}
	return NewEngine(staticSource{snap}, ledger, d, nil, 0, logger), d, ledger
}

func TestRunPassHourBeforeClass(t *testing.T) {
	ctx := context.Background()
	engine, d, _ := newTestEngine(t, mondayTimetable(csc301))

	require.Equal(t, 1, engine.RunPass(ctx, monday(8, 0)))
	require.Len(t, d.calls, 1)
	assert.Equal(t, "Class Starting Soon!", d.calls[0].Title)
	assert.Equal(t, "CSC301 (Data Structures) starts in 1 hour at 9:00 AM", d.calls[0].Body)

	// Re-running at the same or next instant is idempotent.
	assert.Equal(t, 0, engine.RunPass(ctx, monday(8, 0)))
	assert.Equal(t, 0, engine.RunPass(ctx, monday(8, 1)))
	assert.Len(t, d.calls, 1)
}

func TestRunPassCheckpointTolerance(t *testing.T) {
	tests := []struct {
		name      string
		at        time.Time
		wantTitle string
		wantBody  string
	}{
		{name: "60 minutes before", at: monday(8, 0), wantTitle: "Class Starting Soon!", wantBody: "CSC301 (Data Structures) starts in 1 hour at 9:00 AM"},
		{name: "58 minutes before", at: monday(8, 2), wantTitle: "Class Starting Soon!", wantBody: "CSC301 (Data Structures) starts in 1 hour at 9:00 AM"},
		{name: "57 minutes before", at: monday(8, 3)},
		{name: "30 minutes before", at: monday(8, 30), wantTitle: "Class Starting Soon!", wantBody: "CSC301 (Data Structures) starts in 30 minutes at 9:00 AM"},
		{name: "15 minutes before", at: monday(8, 45), wantTitle: "Class Starting Soon!", wantBody: "CSC301 (Data Structures) starts in 15 minutes at 9:00 AM"},
		{name: "10 minutes before", at: monday(8, 50), wantTitle: "Class Starting Soon!", wantBody: "CSC301 (Data Structures) starts in 10 minutes at 9:00 AM"},
		{name: "20 minutes before", at: monday(8, 40)},
		{name: "at start", at: monday(9, 0), wantTitle: "Class Starting NOW!", wantBody: "CSC301 (Data Structures) is starting now at 9:00 AM"},
		{name: "two minutes late", at: monday(9, 2), wantTitle: "Class Starting NOW!", wantBody: "CSC301 (Data Structures) is starting now at 9:00 AM"},
		{name: "three minutes late", at: monday(9, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, d, _ := newTestEngine(t, mondayTimetable(csc301))
			engine.RunPass(context.Background(), tt.at)
			if tt.wantTitle == "" {
				assert.Empty(t, d.calls)
				return
			}
			require.Len(t, d.calls, 1)
			assert.Equal(t, tt.wantTitle, d.calls[0].Title)
			assert.Equal(t, tt.wantBody, d.calls[0].Body)
		})
	}
}

func TestRunPassOverlappingWindows(t *testing.T) {
	// A pass every minute from 8:40 to 8:55 crosses the 15 and 10 minute windows.
	engine, d, _ := newTestEngine(t, mondayTimetable(csc301))
	ctx := context.Background()
	for m := 40; m <= 55; m++ {
		engine.RunPass(ctx, monday(8, 0).Add(time.Duration(m)*time.Minute))
	}
	assert.Equal(t, []string{"Class Starting Soon!", "Class Starting Soon!"}, d.titles(), "15 and 10 minute checkpoints fire once each")
}

func TestRunPassSkipsGarbageTime(t *testing.T) {
	logger, hook := newTestLogger()
	ledger, _, _ := newMemoryLedger(logger)
	d := &recordingDeliverer{}
	snap := mondayTimetable(
		schedule.ClassSession{Code: "BAD100", Subject: "Broken", Time: "garbage"},
		csc301,
	)
	engine := NewEngine(staticSource{snap}, ledger, d, nil, 0, logger)

	assert.Equal(t, 1, engine.RunPass(context.Background(), monday(8, 0)))
	assert.Contains(t, d.calls[0].Body, "CSC301")

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["class_code"] == "BAD100" {
			warned = true
		}
	}
	assert.True(t, warned, "unparsable time is logged")
}

func TestRunPassDailySummary(t *testing.T) {
	ctx := context.Background()
	snap := mondayTimetable(
		schedule.ClassSession{Code: "MTH201", Subject: "Calculus", Time: "10:00 AM"},
		csc301,
		schedule.ClassSession{Code: "BAD100", Subject: "Broken", Time: "later"},
	)
	engine, d, _ := newTestEngine(t, snap)

	require.Equal(t, 1, engine.RunPass(ctx, monday(7, 10)))
	assert.Equal(t, "Today's Classes", d.calls[0].Title)
	assert.Equal(t, "You have 2 classes today: CSC301 at 9:00 AM, MTH201 at 10:00 AM", d.calls[0].Body)

	assert.Equal(t, 0, engine.RunPass(ctx, monday(7, 55)), "summary fires once per date")
}

func TestRunPassSummaryOnlyInSevenOClockHour(t *testing.T) {
	engine, d, _ := newTestEngine(t, mondayTimetable(schedule.ClassSession{Code: "EVE400", Subject: "Evening", Time: "6:00 PM"}))
	engine.RunPass(context.Background(), monday(6, 59))
	engine.RunPass(context.Background(), monday(8, 0))
	assert.Empty(t, d.calls)
}

func TestRunPassWeekendIsQuiet(t *testing.T) {
	snap := schedule.Snapshot{Timetable: schedule.Timetable{"Saturday": {csc301}}}
	engine, d, _ := newTestEngine(t, snap)
	saturday := monday(8, 0).AddDate(0, 0, 5)
	require.Equal(t, time.Saturday, saturday.Weekday())

	engine.RunPass(context.Background(), saturday)
	engine.RunPass(context.Background(), saturday.Add(-time.Hour))
	assert.Empty(t, d.calls)
}

func TestRunPassExamCheckpoints(t *testing.T) {
	today := schedule.DateOf(monday(12, 0))
	tests := []struct {
		name      string
		offset    int
		wantTitle string
		wantBody  string
	}{
		{name: "same day", offset: 0, wantTitle: "EXAM TODAY!", wantBody: "Algebra exam is TODAY! Good luck!"},
		{name: "tomorrow", offset: 1, wantTitle: "EXAM TOMORROW!", wantBody: "Algebra exam is TOMORROW. Final review time!"},
		{name: "five days", offset: 5, wantTitle: "5 Days to Exam", wantBody: "Algebra exam in 5 days. Start intensive revision!"},
		{name: "forty days", offset: 40, wantTitle: "40 Days to Exam", wantBody: "Algebra exam in 40 days. Mark your calendar!"},
		{name: "three days", offset: 3},
		{name: "passed", offset: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := schedule.Snapshot{Exams: []schedule.ExamRecord{{ID: "exam-1", Name: "Algebra", Date: today.AddDays(tt.offset)}}}
			engine, d, _ := newTestEngine(t, snap)
			engine.RunPass(context.Background(), monday(12, 0))
			if tt.wantTitle == "" {
				assert.Empty(t, d.calls)
				return
			}
			require.Len(t, d.calls, 1)
			assert.Equal(t, tt.wantTitle, d.calls[0].Title)
			assert.Equal(t, tt.wantBody, d.calls[0].Body)
		})
	}
}

func TestRunPassFiveDayBoundaryAcrossDays(t *testing.T) {
	ctx := context.Background()
	exam := schedule.ExamRecord{ID: "exam-1", Name: "Algebra", Date: schedule.DateOf(monday(0, 0)).AddDays(6)}
	engine, d, _ := newTestEngine(t, schedule.Snapshot{Exams: []schedule.ExamRecord{exam}})

	engine.RunPass(ctx, monday(23, 59))
	assert.Empty(t, d.calls, "six days left")

	engine.RunPass(ctx, monday(0, 1).AddDate(0, 0, 1))
	require.Len(t, d.calls, 1)
	assert.Equal(t, "5 Days to Exam", d.calls[0].Title)

	engine.RunPass(ctx, monday(18, 0).AddDate(0, 0, 1))
	assert.Len(t, d.calls, 1)
}

func TestDurableMarkersSurviveRestart(t *testing.T) {
	ctx := context.Background()
	logger, _ := newTestLogger()
	durable := memory.NewMarkerStore()
	today := schedule.DateOf(monday(8, 0))
	snap := mondayTimetable(csc301)
	snap.Exams = []schedule.ExamRecord{{ID: "exam-1", Name: "Algebra", Date: today}}

	first := &recordingDeliverer{}
	NewEngine(staticSource{snap}, NewLedger(memory.NewMarkerStore(), durable, logger), first, nil, 0, logger).
		RunPass(ctx, monday(8, 0))
	assert.ElementsMatch(t, []string{"Class Starting Soon!", "EXAM TODAY!"}, first.titles())

	// A restart gets a fresh session store but keeps the durable one.
	second := &recordingDeliverer{}
	NewEngine(staticSource{snap}, NewLedger(memory.NewMarkerStore(), durable, logger), second, nil, 0, logger).
		RunPass(ctx, monday(8, 1))
	assert.Equal(t, []string{"Class Starting Soon!"}, second.titles())
}

func TestMidnightRollover(t *testing.T) {
	ctx := context.Background()

	t.Run("rollover at midnight lets next week's checkpoint fire", func(t *testing.T) {
		engine, d, ledger := newTestEngine(t, mondayTimetable(csc301))
		key := reminder.ClassKey(csc301, 9*60, time.Monday, 60)
		engine.RunPass(ctx, monday(8, 0))
		require.True(t, ledger.HasFired(ctx, key, reminder.ScopeSession))

		engine.RollOver(ctx, monday(0, 0).AddDate(0, 0, 1))
		assert.False(t, ledger.HasFired(ctx, key, reminder.ScopeSession))

		engine.RunPass(ctx, monday(8, 0).AddDate(0, 0, 7))
		assert.Len(t, d.calls, 2)
	})

	t.Run("late midnight timer does not repeat today's reminders", func(t *testing.T) {
		early := schedule.Snapshot{Timetable: schedule.Timetable{
			"Monday": {{Code: "PHY101", Subject: "Mechanics", Time: "1:00 AM"}},
		}}
		engine, d, _ := newTestEngine(t, early)
		engine.RunPass(ctx, monday(0, 0))
		require.Len(t, d.calls, 1)

		// The timer armed for Monday midnight fires after the first pass of the day.
		engine.RollOver(ctx, monday(0, 0).Add(30*time.Second))
		engine.RunPass(ctx, monday(0, 1))
		assert.Len(t, d.calls, 1)
	})

	t.Run("missed rollover heals on the next date", func(t *testing.T) {
		engine, d, _ := newTestEngine(t, mondayTimetable(csc301))
		engine.RunPass(ctx, monday(8, 0))
		engine.RunPass(ctx, monday(8, 0).AddDate(0, 0, 7))
		assert.Len(t, d.calls, 2, "the same checkpoint fires again on the next Monday")
	})
}

func TestRunPassStorageFailureStillDedupsInProcess(t *testing.T) {
	ctx := context.Background()
	logger, hook := newTestLogger()
	ledger := NewLedger(brokenStore{}, brokenStore{}, logger)
	d := &recordingDeliverer{}
	snap := mondayTimetable(csc301)
	snap.Exams = []schedule.ExamRecord{{ID: "exam-1", Name: "Algebra", Date: schedule.DateOf(monday(8, 0))}}
	engine := NewEngine(staticSource{snap}, ledger, d, nil, 0, logger)

	assert.Equal(t, 2, engine.RunPass(ctx, monday(8, 0)))
	assert.Equal(t, 0, engine.RunPass(ctx, monday(8, 1)))

	var storageErrors int
	for _, e := range hook.AllEntries() {
		if err, ok := e.Data[logrus.ErrorKey].(error); ok && errors.Is(err, reminder.ErrStorage) {
			storageErrors++
		}
	}
	assert.Positive(t, storageErrors)
}

func TestRunPassPrunesOncePerDay(t *testing.T) {
	ctx := context.Background()
	logger, _ := newTestLogger()
	durable := &countingStore{MarkerStore: memory.NewMarkerStore()}
	now := monday(8, 0)
	require.NoError(t, durable.Save(ctx, reminder.Marker{Key: "exam:old:5", FiredAt: now.AddDate(0, 0, -10)}))
	require.NoError(t, durable.Save(ctx, reminder.Marker{Key: "exam:recent:5", FiredAt: now.AddDate(0, 0, -2)}))

	engine := NewEngine(staticSource{}, NewLedger(memory.NewMarkerStore(), durable, logger), &recordingDeliverer{}, nil, 7*24*time.Hour, logger)
	engine.RunPass(ctx, now)
	engine.RunPass(ctx, now.Add(5*time.Minute))
	assert.Equal(t, 1, durable.prunes)

	old, _ := durable.Exists(ctx, "exam:old:5")
	recent, _ := durable.Exists(ctx, "exam:recent:5")
	assert.False(t, old)
	assert.True(t, recent)

	engine.RunPass(ctx, now.AddDate(0, 0, 1))
	assert.Equal(t, 2, durable.prunes)
}

func TestRunPassLeader(t *testing.T) {
	ctx := context.Background()
	logger, _ := newTestLogger()

	t.Run("follower skips", func(t *testing.T) {
		ledger, _, _ := newMemoryLedger(logger)
		d := &recordingDeliverer{}
		engine := NewEngine(staticSource{mondayTimetable(csc301)}, ledger, d, fakeLeader{ok: false}, 0, logger)
		assert.Equal(t, 0, engine.RunPass(ctx, monday(8, 0)))
	})

	t.Run("lock error fails open", func(t *testing.T) {
		ledger, _, _ := newMemoryLedger(logger)
		d := &recordingDeliverer{}
		engine := NewEngine(staticSource{mondayTimetable(csc301)}, ledger, d, fakeLeader{err: errors.New("redis down")}, 0, logger)
		assert.Equal(t, 1, engine.RunPass(ctx, monday(8, 0)))
	})
}

func TestRunPassDeliveryPanicMarksReminder(t *testing.T) {
	ctx := context.Background()
	logger, _ := newTestLogger()
	ledger, _, _ := newMemoryLedger(logger)
	snap := mondayTimetable(csc301)
	snap.Exams = []schedule.ExamRecord{{ID: "exam-1", Name: "Algebra", Date: schedule.DateOf(monday(8, 0))}}
	d := &crashingDeliverer{crashOn: "Class Starting Soon!"}
	engine := NewEngine(staticSource{snap}, ledger, d, nil, 0, logger)

	assert.Equal(t, 1, engine.RunPass(ctx, monday(8, 0)))
	assert.Equal(t, []string{"EXAM TODAY!"}, d.titles(), "the other reminder in the pass still goes out")
	assert.True(t, ledger.HasFired(ctx, reminder.ClassKey(csc301, 9*60, time.Monday, 60), reminder.ScopeSession))

	assert.Equal(t, 0, engine.RunPass(ctx, monday(8, 1)))
	assert.Equal(t, 1, d.crashes, "a crashed reminder is not retried")
}

func TestRunPassRecoversFromPanic(t *testing.T) {
	logger, hook := newTestLogger()
	ledger, _, _ := newMemoryLedger(logger)
	engine := NewEngine(panicSource{}, ledger, &recordingDeliverer{}, nil, 0, logger)

	assert.NotPanics(t, func() { engine.RunPass(context.Background(), monday(8, 0)) })
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	// The engine remains usable.
	assert.NotPanics(t, func() { engine.RunPass(context.Background(), monday(8, 1)) })
}

func TestEnginesAreIndependent(t *testing.T) {
	ctx := context.Background()
	a, da, _ := newTestEngine(t, mondayTimetable(csc301))
	b, db, _ := newTestEngine(t, mondayTimetable(csc301))
	a.RunPass(ctx, monday(8, 0))
	b.RunPass(ctx, monday(8, 0))
	assert.Len(t, da.calls, 1)
	assert.Len(t, db.calls, 1)
}
