package notification

import "context"

// Notifier shows a notification directly from the foreground process.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Agent is a background delivery agent reachable from the engine.
type Agent interface {
	// Active reports whether an agent is currently listening.
	Active(ctx context.Context) bool
	Handoff(ctx context.Context, msg AgentMessage) error
}

// PermissionProbe reads and requests the OS notification permission.
type PermissionProbe interface {
	Query(ctx context.Context) (Permission, error)
	// Request asks the user; the answer may arrive later through PermissionGate.Set.
	Request(ctx context.Context) (Permission, error)
}

// FeedStore persists the in-app feed as part of the dashboard state.
type FeedStore interface {
	LoadFeed(ctx context.Context) ([]FeedEntry, error)
	SaveFeed(ctx context.Context, feed []FeedEntry) error
}
