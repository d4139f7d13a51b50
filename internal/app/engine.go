package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"uniportal_bot/internal/domain/notification"
	"uniportal_bot/internal/domain/reminder"
	"uniportal_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

// SnapshotSource supplies the schedule read by one pass.
type SnapshotSource interface {
	Snapshot(ctx context.Context) schedule.Snapshot
}

// Deliverer hands one reminder to the user.
type Deliverer interface {
	Deliver(ctx context.Context, title, body string) notification.Route
}

// Leader guards against several processes evaluating the same ledger at once.
type Leader interface {
	Acquire(ctx context.Context) (bool, error)
}

// ReminderService defines the operations the Driver invokes.
type ReminderService interface {
	RunPass(ctx context.Context, now time.Time) int
	RollOver(ctx context.Context, now time.Time)
}

// Engine ties one schedule, one ledger and one delivery channel together. Separate
// Engines share nothing, so tests can run several side by side.
type Engine struct {
	source    SnapshotSource
	ledger    *Ledger
	evaluator *Evaluator
	delivery  Deliverer
	leader    Leader
	retention time.Duration
	logger    *logrus.Entry

	mu sync.Mutex
}

// NewEngine accepts a nil leader for single-process use.
func NewEngine(source SnapshotSource, ledger *Ledger, delivery Deliverer, leader Leader, retention time.Duration, logger *logrus.Entry) *Engine {
	if retention <= 0 {
		retention = reminder.DefaultRetention
	}
	return &Engine{
		source:    source,
		ledger:    ledger,
		evaluator: NewEvaluator(ledger, logger.WithField("component", "evaluator")),
		delivery:  delivery,
		leader:    leader,
		retention: retention,
		logger:    logger,
	}
}

// RunPass evaluates the schedule at now, delivers every due reminder and marks it
// fired whatever the delivery outcome. Passes are serialised and never panic.
func (e *Engine) RunPass(ctx context.Context, now time.Time) (delivered int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("panic", r).Error("Reminder pass aborted")
		}
	}()

	if e.leader != nil {
		ok, err := e.leader.Acquire(ctx)
		if err != nil {
			e.logger.WithError(err).Warn("Leader lock unavailable, evaluating anyway")
		} else if !ok {
			e.logger.Debug("Another process holds the leader lock, skipping pass")
			return 0
		}
	}

	e.ledger.RollOver(ctx, now)
	if _, err := e.ledger.PruneDurable(ctx, now, e.retention); err != nil {
		e.logger.WithError(err).Error("Durable marker pruning failed")
	}

	due := e.evaluator.Evaluate(ctx, now, e.source.Snapshot(ctx))
	for _, r := range due {
		route, err := e.deliver(ctx, r)
		e.ledger.MarkFired(ctx, r.Key, r.Scope, now)
		logCtx := e.logger.WithFields(logrus.Fields{"marker": r.Key, "domain": r.Domain})
		if err != nil {
			logCtx.WithError(err).Error("Reminder delivery crashed; marked fired anyway")
			continue
		}
		delivered++
		logCtx.WithField("route", route).Info("Reminder delivered")
	}

	if delivered > 0 {
		e.logger.WithField("delivered", delivered).Info("Reminder pass finished")
	}
	return delivered
}

// deliver contains a panic in any delivery surface to the one reminder.
func (e *Engine) deliver(ctx context.Context, r reminder.Reminder) (route notification.Route, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", notification.ErrDeliveryFailed, p)
		}
	}()
	return e.delivery.Deliver(ctx, r.Title, r.Body), nil
}

// RollOver runs at local midnight and drops session markers from earlier days.
// now is the wall clock when the timer fired, which may be well past midnight.
func (e *Engine) RollOver(ctx context.Context, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ledger.RollOver(ctx, now) {
		e.logger.WithField("at", now.Format(time.RFC3339)).Info("Midnight rollover: session markers from earlier days dropped")
		return
	}
	e.logger.Debug("Midnight rollover: nothing to drop")
}
