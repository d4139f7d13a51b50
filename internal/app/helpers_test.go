package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"uniportal_bot/internal/domain/notification"
	"uniportal_bot/internal/domain/reminder"
	"uniportal_bot/internal/domain/schedule"
	"uniportal_bot/internal/infra/memory"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

// monday is 2025-03-03, a Monday, at the given local clock time.
func monday(hour, minute int) time.Time {
	return time.Date(2025, time.March, 3, hour, minute, 0, 0, time.UTC)
}

func newTestLogger() (*logrus.Entry, *logtest.Hook) {
	l, hook := logtest.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(l), hook
}

type staticSource struct {
	snap schedule.Snapshot
}

func (s staticSource) Snapshot(context.Context) schedule.Snapshot { return s.snap }

type panicSource struct{}

func (panicSource) Snapshot(context.Context) schedule.Snapshot { panic("corrupt schedule") }

type delivered struct {
	Title, Body string
}

type recordingDeliverer struct {
	mu    sync.Mutex
	calls []delivered
}

func (d *recordingDeliverer) Deliver(_ context.Context, title, body string) notification.Route {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, delivered{title, body})
	return notification.RouteInApp
}

func (d *recordingDeliverer) titles() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.calls))
	for _, c := range d.calls {
		out = append(out, c.Title)
	}
	return out
}

// crashingDeliverer panics for one title and records every other call.
type crashingDeliverer struct {
	recordingDeliverer
	crashOn string
	crashes int
}

func (d *crashingDeliverer) Deliver(ctx context.Context, title, body string) notification.Route {
	if title == d.crashOn {
		d.crashes++
		panic("feed backend crashed")
	}
	return d.recordingDeliverer.Deliver(ctx, title, body)
}

var errBroken = errors.New("store offline")

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Exists(context.Context, reminder.MarkerKey) (bool, error) {
	return false, errBroken
}

func (brokenStore) Save(context.Context, reminder.Marker) error {
	return errBroken
}

func (brokenStore) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, errBroken
}

func (brokenStore) OldestFiredAt(context.Context) (time.Time, bool, error) {
	return time.Time{}, false, errBroken
}

// countingStore wraps the in-memory store and counts prune calls.
type countingStore struct {
	*memory.MarkerStore
	prunes int
}

func (s *countingStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.prunes++
	return s.MarkerStore.DeleteOlderThan(ctx, cutoff)
}

type fakeLeader struct {
	ok  bool
	err error
}

func (l fakeLeader) Acquire(context.Context) (bool, error) { return l.ok, l.err }

type fakeNotifier struct {
	mu     sync.Mutex
	err    error
	panics bool
	shown  []delivered
}

func (n *fakeNotifier) Notify(_ context.Context, title, body string) error {
	if n.panics {
		panic("notification backend crashed")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.shown = append(n.shown, delivered{title, body})
	return nil
}

type fakeAgent struct {
	active bool
	err    error
	msgs   []notification.AgentMessage
}

func (a *fakeAgent) Active(context.Context) bool { return a.active }

func (a *fakeAgent) Handoff(_ context.Context, msg notification.AgentMessage) error {
	if a.err != nil {
		return a.err
	}
	a.msgs = append(a.msgs, msg)
	return nil
}

type fakeProbe struct {
	state    notification.Permission
	err      error
	requests int
	answer   notification.Permission
}

func (p *fakeProbe) Query(context.Context) (notification.Permission, error) {
	return p.state, p.err
}

func (p *fakeProbe) Request(context.Context) (notification.Permission, error) {
	p.requests++
	return p.answer, nil
}

type memFeedStore struct {
	saved []notification.FeedEntry
	err   error
}

func (s *memFeedStore) LoadFeed(context.Context) ([]notification.FeedEntry, error) {
	return s.saved, nil
}

func (s *memFeedStore) SaveFeed(_ context.Context, feed []notification.FeedEntry) error {
	if s.err != nil {
		return s.err
	}
	s.saved = feed
	return nil
}

func newMemoryLedger(logger *logrus.Entry) (*Ledger, *memory.MarkerStore, *memory.MarkerStore) {
	session, durable := memory.NewMarkerStore(), memory.NewMarkerStore()
	return NewLedger(session, durable, logger), session, durable
}
