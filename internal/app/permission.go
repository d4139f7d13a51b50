package app

import (
	"context"
	"sync"

	"uniportal_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// PermissionGate caches the notification permission. It is probed once at startup
// and only changes when the user answers a request.
type PermissionGate struct {
	mu     sync.RWMutex
	state  notification.Permission
	probe  notification.PermissionProbe
	logger *logrus.Entry
}

// NewPermissionGate queries probe once. A nil probe means the capability is absent.
func NewPermissionGate(ctx context.Context, probe notification.PermissionProbe, logger *logrus.Entry) *PermissionGate {
	g := &PermissionGate{state: notification.PermissionDenied, probe: probe, logger: logger}
	if probe == nil {
		logger.WithError(notification.ErrPermissionUnavailable).Info("No notification capability, in-app delivery only")
		return g
	}

	p, err := probe.Query(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to query notification permission, treating as not yet asked")
		p = notification.PermissionDefault
	}
	g.state = p
	logger.WithField("permission", p).Info("Notification permission read")
	return g
}

func (g *PermissionGate) State() notification.Permission {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

func (g *PermissionGate) Granted() bool {
	return g.State() == notification.PermissionGranted
}

// Set records an interactive answer.
func (g *PermissionGate) Set(p notification.Permission) {
	g.mu.Lock()
	g.state = p
	g.mu.Unlock()
	g.logger.WithField("permission", p).Info("Notification permission updated")
}

// RequestIfUndecided issues a request only while the permission is "default".
func (g *PermissionGate) RequestIfUndecided(ctx context.Context) {
	if g.probe == nil || g.State() != notification.PermissionDefault {
		return
	}
	p, err := g.probe.Request(ctx)
	if err != nil {
		g.logger.WithError(err).Warn("Notification permission request failed")
		return
	}
	if p != notification.PermissionDefault {
		g.Set(p)
	}
}

// StoredPermissionProbe reads the permission persisted in the dashboard and cannot
// prompt the user; it suits channels with no interactive consent step.
type StoredPermissionProbe struct {
	dashboard *DashboardService
	fallback  notification.Permission
}

func NewStoredPermissionProbe(d *DashboardService, fallback notification.Permission) *StoredPermissionProbe {
	return &StoredPermissionProbe{dashboard: d, fallback: fallback}
}

func (p *StoredPermissionProbe) Query(ctx context.Context) (notification.Permission, error) {
	if stored := p.dashboard.Permission(); stored != "" {
		return stored, nil
	}
	return p.fallback, nil
}

func (p *StoredPermissionProbe) Request(ctx context.Context) (notification.Permission, error) {
	return p.Query(ctx)
}
