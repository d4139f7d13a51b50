package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"uniportal_bot/internal/domain/dashboard"
)

// DashboardRepository holds the dashboard blob in memory, encoded as JSON so that
// callers never share state with the stored copy.
type DashboardRepository struct {
	mu   sync.Mutex
	blob []byte
	// FailSaves makes Save return an error, for exercising storage failures.
	FailSaves bool
}

func NewDashboardRepository() *DashboardRepository {
	return &DashboardRepository{}
}

func (r *DashboardRepository) Load(_ context.Context) (*dashboard.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blob == nil {
		return nil, dashboard.ErrNotFound
	}
	var s dashboard.State
	if err := json.Unmarshal(r.blob, &s); err != nil {
		return nil, fmt.Errorf("error decoding dashboard state: %w", err)
	}
	return &s, nil
}

func (r *DashboardRepository) Save(_ context.Context, s *dashboard.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSaves {
		return fmt.Errorf("error saving dashboard state: storage unavailable")
	}
	blob, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("error encoding dashboard state: %w", err)
	}
	r.blob = blob
	return nil
}
