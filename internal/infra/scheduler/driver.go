package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"uniportal_bot/internal/app"
	"uniportal_bot/internal/domain/reminder"
	"uniportal_bot/internal/domain/schedule"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	// MaxTickGap is the longest interval allowed between two periodic passes.
	MaxTickGap = 60 * time.Minute
	// checkpointWindow is the width of a class checkpoint window. Longer gaps can
	// step over a window.
	checkpointWindow = (2*reminder.ClassTolerance + 1) * time.Minute

	passTimeout     = time.Minute
	rolloverTimeout = 30 * time.Second
)

var ErrIntervalTooCoarse = errors.New("reminder check interval is longer than 60 minutes")

// Driver invokes the reminder engine on a cron schedule, once shortly after start,
// on demand through Resume, and clears session markers at every local midnight.
type Driver struct {
	cronEngine   *cron.Cron
	service      app.ReminderService
	logger       *logrus.Entry
	initialDelay time.Duration
	nowFunc      func() time.Time

	mu       sync.Mutex
	spec     string
	entryID  cron.EntryID
	initial  *time.Timer
	midnight *time.Timer
	running  bool
}

func NewDriver(service app.ReminderService, spec string, initialDelay time.Duration, logger *logrus.Entry) (*Driver, error) {
	if err := ValidateSpec(spec, logger); err != nil {
		return nil, err
	}
	cronLogger := cron.PrintfLogger(logger.WithField("component", "cron"))
	return &Driver{
		cronEngine: cron.New(
			cron.WithLocation(time.Local),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		service:      service,
		logger:       logger,
		initialDelay: initialDelay,
		nowFunc:      time.Now,
		spec:         spec,
	}, nil
}

// ValidateSpec parses a standard five-field cron spec and rejects it when two
// consecutive runs can be more than MaxTickGap apart. One leap year is walked so
// that day-of-week, day-of-month and month restrictions all show up as gaps.
func ValidateSpec(spec string, logger *logrus.Entry) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	ref := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	horizon := ref.AddDate(1, 0, 0)
	t := sched.Next(ref.Add(-time.Second))
	if t.IsZero() {
		return fmt.Errorf("%w: %q never fires", ErrIntervalTooCoarse, spec)
	}
	if gap := t.Sub(ref); gap > MaxTickGap {
		return fmt.Errorf("%w: %q first runs %s after midnight on %s", ErrIntervalTooCoarse, spec, gap, ref.Format("2006-01-02"))
	}

	var widest time.Duration
	for t.Before(horizon) {
		next := sched.Next(t)
		if next.IsZero() {
			return fmt.Errorf("%w: %q stops firing after %s", ErrIntervalTooCoarse, spec, t.Format(time.RFC3339))
		}
		gap := next.Sub(t)
		if gap > MaxTickGap {
			return fmt.Errorf("%w: %q leaves %s between %s and %s", ErrIntervalTooCoarse, spec, gap, t.Format(time.RFC3339), next.Format(time.RFC3339))
		}
		if gap > widest {
			widest = gap
		}
		t = next
	}
	if widest > checkpointWindow {
		logger.WithField("interval", widest.String()).Warn("Check interval is wider than a class checkpoint window; some class reminders may be skipped")
	}
	return nil
}

func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true

	d.logger.WithField("spec", d.spec).Info("Starting reminder driver...")
	if err := d.installLocked(d.spec); err != nil {
		// the spec was validated in NewDriver
		d.logger.WithError(err).Error("Could not add reminder check cron job")
	}
	d.initial = time.AfterFunc(d.initialDelay, func() { d.runPass("initial") })
	d.armMidnightLocked()
	d.cronEngine.Start()
	d.logger.Info("Reminder driver started")
}

// Reschedule replaces the periodic job. The old entry is removed first so that
// only one periodic job is ever live.
func (d *Driver) Reschedule(spec string) error {
	if err := ValidateSpec(spec, d.logger); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.installLocked(spec); err != nil {
		return err
	}
	d.logger.WithField("spec", spec).Info("Reminder check rescheduled")
	return nil
}

func (d *Driver) installLocked(spec string) error {
	if d.entryID != 0 {
		d.cronEngine.Remove(d.entryID)
		d.entryID = 0
	}
	id, err := d.cronEngine.AddFunc(spec, func() { d.runPass("periodic") })
	if err != nil {
		return fmt.Errorf("failed to add reminder check job: %w", err)
	}
	d.entryID = id
	d.spec = spec
	return nil
}

// Resume runs a pass immediately, e.g. when the user comes back after the host
// was suspended. It returns the number of reminders delivered.
func (d *Driver) Resume() int {
	return d.runPass("resume")
}

func (d *Driver) runPass(trigger string) int {
	ctx, cancel := context.WithTimeout(context.Background(), passTimeout)
	defer cancel()

	now := d.nowFunc()
	d.logger.WithFields(logrus.Fields{"trigger": trigger, "at": now.Format(time.RFC3339)}).Debug("Running reminder pass")
	return d.service.RunPass(ctx, now)
}

func (d *Driver) armMidnightLocked() {
	wait := UntilNextMidnight(d.nowFunc())
	d.midnight = time.AfterFunc(wait, d.rollOver)
	d.logger.WithField("in", wait.Round(time.Second).String()).Debug("Midnight rollover armed")
}

func (d *Driver) rollOver() {
	ctx, cancel := context.WithTimeout(context.Background(), rolloverTimeout)
	d.service.RollOver(ctx, d.nowFunc())
	cancel()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		d.armMidnightLocked()
	}
}

// Stop halts every trigger and waits for a running pass to finish.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	if d.initial != nil {
		d.initial.Stop()
	}
	if d.midnight != nil {
		d.midnight.Stop()
	}
	d.mu.Unlock()

	d.logger.Info("Stopping reminder driver...")
	ctx := d.cronEngine.Stop()
	<-ctx.Done()
	d.logger.Info("Reminder driver gracefully stopped")
}

// UntilNextMidnight is the wait before the next local midnight after now.
func UntilNextMidnight(now time.Time) time.Duration {
	return schedule.NextMidnight(now).Sub(now)
}
