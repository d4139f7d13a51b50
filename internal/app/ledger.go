package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"uniportal_bot/internal/domain/reminder"
	"uniportal_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

// Ledger answers "has this reminder fired" across two marker scopes.
//
// Every marker set during the process lifetime is also kept in memory, so a failed
// store write only costs durability across restarts, never a duplicate in this process.
type Ledger struct {
	session reminder.MarkerStore
	durable reminder.MarkerStore
	logger  *logrus.Entry

	mu    sync.Mutex
	local map[reminder.Scope]map[reminder.MarkerKey]time.Time
}

func NewLedger(session, durable reminder.MarkerStore, logger *logrus.Entry) *Ledger {
	return &Ledger{
		session: session,
		durable: durable,
		logger:  logger,
		local: map[reminder.Scope]map[reminder.MarkerKey]time.Time{
			reminder.ScopeSession: {},
			reminder.ScopeDurable: {},
		},
	}
}

func (l *Ledger) store(scope reminder.Scope) reminder.MarkerStore {
	if scope == reminder.ScopeSession {
		return l.session
	}
	return l.durable
}

// HasFired never fails: a store read error is logged and treated as "not fired".
func (l *Ledger) HasFired(ctx context.Context, key reminder.MarkerKey, scope reminder.Scope) bool {
	l.mu.Lock()
	_, ok := l.local[scope][key]
	l.mu.Unlock()
	if ok {
		return true
	}

	found, err := l.store(scope).Exists(ctx, key)
	if err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{"marker": key, "scope": scope}).Error("Failed to read fired marker")
		return false
	}
	return found
}

// MarkFired records the marker in memory first, then persists it best-effort.
func (l *Ledger) MarkFired(ctx context.Context, key reminder.MarkerKey, scope reminder.Scope, firedAt time.Time) {
	l.mu.Lock()
	if _, ok := l.local[scope][key]; !ok {
		l.local[scope][key] = firedAt
	}
	l.mu.Unlock()

	if err := l.store(scope).Save(ctx, reminder.Marker{Key: key, FiredAt: firedAt}); err != nil {
		l.logger.WithError(fmt.Errorf("%w: %v", reminder.ErrStorage, err)).
			WithFields(logrus.Fields{"marker": key, "scope": scope}).
			Error("Failed to persist fired marker; it holds only for this process")
	}
}

// RollOver drops session markers fired before today's local midnight. It runs at the
// start of every pass, which covers a midnight timer that never ran, and from the
// midnight timer itself, which may fire late after the host was suspended. Markers
// fired today are kept either way.
func (l *Ledger) RollOver(ctx context.Context, now time.Time) bool {
	today := schedule.DateOf(now)
	cutoff := today.Midnight(now.Location())

	stale := false
	l.mu.Lock()
	for key, firedAt := range l.local[reminder.ScopeSession] {
		if firedAt.Before(cutoff) {
			delete(l.local[reminder.ScopeSession], key)
			stale = true
		}
	}
	l.mu.Unlock()

	if !stale {
		oldest, ok, err := l.session.OldestFiredAt(ctx)
		if err != nil {
			l.logger.WithError(err).Warn("Failed to inspect session markers for rollover")
			return false
		}
		stale = ok && oldest.Before(cutoff)
	}
	if !stale {
		return false
	}

	removed, err := l.session.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		l.logger.WithError(fmt.Errorf("%w: drop session markers: %v", reminder.ErrStorage, err)).
			Error("Failed to drop session markers from an earlier day")
		return true
	}
	l.logger.WithFields(logrus.Fields{"date": today.String(), "removed": removed}).Info("Session markers from an earlier day dropped")
	return true
}

// PruneDurable removes durable markers older than olderThan, at most once per
// calendar day. The gate is itself a durable marker.
func (l *Ledger) PruneDurable(ctx context.Context, now time.Time, olderThan time.Duration) (int64, error) {
	gate := reminder.PruneKey(schedule.DateOf(now))
	if l.HasFired(ctx, gate, reminder.ScopeDurable) {
		return 0, nil
	}

	cutoff := now.Add(-olderThan)
	l.mu.Lock()
	for key, firedAt := range l.local[reminder.ScopeDurable] {
		if firedAt.Before(cutoff) {
			delete(l.local[reminder.ScopeDurable], key)
		}
	}
	l.mu.Unlock()

	removed, err := l.durable.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		err = errors.Join(reminder.ErrStorage, fmt.Errorf("prune durable markers: %w", err))
	} else {
		l.logger.WithFields(logrus.Fields{"removed": removed, "cutoff": cutoff.Format(time.RFC3339)}).Info("Pruned durable markers")
	}

	l.MarkFired(ctx, gate, reminder.ScopeDurable, now)
	return removed, err
}
