package reminder

import (
	"context"
	"errors"
	"time"
)

// ErrStorage marks a marker persistence failure. Callers treat it as non-fatal.
var ErrStorage = errors.New("marker storage failure")

// MarkerStore persists fired markers of a single scope.
type MarkerStore interface {
	Exists(ctx context.Context, key MarkerKey) (bool, error)
	// Save is idempotent: saving an existing key keeps the original FiredAt.
	Save(ctx context.Context, m Marker) error
	// DeleteOlderThan removes markers fired before cutoff and returns how many went.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// OldestFiredAt returns the earliest FiredAt held, ok=false when empty.
	OldestFiredAt(ctx context.Context) (time.Time, bool, error)
}
