package notification

import (
	"errors"
	"time"
)

// FeedCapacity bounds the in-app feed.
const FeedCapacity = 10

// FeedEntry is one line of the in-app notification feed, newest first.
type FeedEntry struct {
	Message string    `json:"message"`
	FiredAt time.Time `json:"firedAt"`
	Label   string    `json:"time,omitempty"`
}

// PushFeed prepends e and drops entries beyond FeedCapacity.
func PushFeed(feed []FeedEntry, e FeedEntry) []FeedEntry {
	out := make([]FeedEntry, 0, FeedCapacity)
	out = append(out, e)
	for _, old := range feed {
		if len(out) == FeedCapacity {
			break
		}
		out = append(out, old)
	}
	return out
}

// Permission is the tri-state OS notification permission.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default" // not yet asked
)

// ParsePermission maps unknown values to PermissionDefault.
func ParsePermission(s string) Permission {
	switch Permission(s) {
	case PermissionGranted, PermissionDenied:
		return Permission(s)
	default:
		return PermissionDefault
	}
}

// ActionNotify is the only action understood by the background delivery agent.
const ActionNotify = "notify"

// AgentMessage is the handoff payload sent to the background delivery agent.
type AgentMessage struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Icon   string `json:"icon"`
}

// Route records which surface carried a delivery beyond the in-app feed.
type Route string

const (
	RouteInApp  Route = "in_app"
	RouteAgent  Route = "agent"
	RouteDirect Route = "direct"
)

var (
	ErrPermissionUnavailable = errors.New("notification permission unavailable")
	ErrAgentUnreachable      = errors.New("background delivery agent unreachable")
	ErrDeliveryFailed        = errors.New("os notification delivery failed")
)
