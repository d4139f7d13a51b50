package dashboard

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when nothing has been persisted yet.
var ErrNotFound = errors.New("dashboard state not found")

// Repository loads and stores the dashboard blob of one student.
type Repository interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, s *State) error
}
