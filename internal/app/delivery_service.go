package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"uniportal_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// Feed is the bounded in-app notification list. Appends cannot fail; persistence
// is best-effort.
type Feed struct {
	mu      sync.Mutex
	entries []notification.FeedEntry
	store   notification.FeedStore
	logger  *logrus.Entry
}

func NewFeed(ctx context.Context, store notification.FeedStore, logger *logrus.Entry) *Feed {
	f := &Feed{store: store, logger: logger}
	entries, err := store.LoadFeed(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to load notification feed, starting empty")
		return f
	}
	if len(entries) > notification.FeedCapacity {
		entries = entries[:notification.FeedCapacity]
	}
	f.entries = entries
	return f
}

func (f *Feed) Append(ctx context.Context, message string, at time.Time) {
	f.mu.Lock()
	f.entries = notification.PushFeed(f.entries, notification.FeedEntry{
		Message: message,
		FiredAt: at,
		Label:   at.Format("Mon 3:04 PM"),
	})
	snapshot := f.copyLocked()
	f.mu.Unlock()

	if err := f.store.SaveFeed(ctx, snapshot); err != nil {
		f.logger.WithError(err).Error("Failed to persist notification feed")
	}
}

// Entries returns the feed newest first.
func (f *Feed) Entries() []notification.FeedEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copyLocked()
}

func (f *Feed) Clear(ctx context.Context) error {
	f.mu.Lock()
	f.entries = nil
	f.mu.Unlock()
	if err := f.store.SaveFeed(ctx, []notification.FeedEntry{}); err != nil {
		return fmt.Errorf("failed to persist cleared feed: %w", err)
	}
	return nil
}

func (f *Feed) copyLocked() []notification.FeedEntry {
	out := make([]notification.FeedEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// DeliveryService presents a reminder through whichever surface is available.
type DeliveryService struct {
	feed    *Feed
	gate    *PermissionGate
	agent   notification.Agent
	direct  notification.Notifier
	icon    string
	logger  *logrus.Entry
	nowFunc func() time.Time
}

// NewDeliveryService accepts a nil agent or nil direct notifier.
func NewDeliveryService(feed *Feed, gate *PermissionGate, agent notification.Agent, direct notification.Notifier, icon string, logger *logrus.Entry) *DeliveryService {
	return &DeliveryService{
		feed:    feed,
		gate:    gate,
		agent:   agent,
		direct:  direct,
		icon:    icon,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Deliver always records the in-app entry, then tries the OS-level surface:
// background agent first, direct notifier second. It never returns an error.
func (d *DeliveryService) Deliver(ctx context.Context, title, body string) notification.Route {
	d.feed.Append(ctx, body, d.nowFunc())

	logCtx := d.logger.WithField("title", title)
	if !d.gate.Granted() {
		logCtx.WithError(notification.ErrPermissionUnavailable).
			WithField("permission", d.gate.State()).
			Debug("Delivered in-app only")
		return notification.RouteInApp
	}

	if d.agent != nil && d.agent.Active(ctx) {
		msg := notification.AgentMessage{Action: notification.ActionNotify, Title: title, Body: body, Icon: d.icon}
		err := d.agent.Handoff(ctx, msg)
		if err == nil {
			logCtx.Debug("Handed notification to background agent")
			return notification.RouteAgent
		}
		logCtx.WithError(err).Warn("Background agent handoff failed, falling back to direct notification")
	}

	if d.direct == nil {
		return notification.RouteInApp
	}
	if err := d.notifyDirect(ctx, title, body); err != nil {
		logCtx.WithError(err).Error("Direct notification failed; in-app entry kept")
		return notification.RouteInApp
	}
	return notification.RouteDirect
}

func (d *DeliveryService) notifyDirect(ctx context.Context, title, body string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", notification.ErrDeliveryFailed, r)
		}
	}()
	if err := d.direct.Notify(ctx, title, body); err != nil {
		return fmt.Errorf("%w: %w", notification.ErrDeliveryFailed, err)
	}
	return nil
}
