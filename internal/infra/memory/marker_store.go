package memory

import (
	"context"
	"sync"
	"time"

	"uniportal_bot/internal/domain/reminder"
)

// MarkerStore keeps markers for the lifetime of the process. It backs the session
// scope by default.
type MarkerStore struct {
	mu      sync.RWMutex
	markers map[reminder.MarkerKey]time.Time
}

func NewMarkerStore() *MarkerStore {
	return &MarkerStore{markers: make(map[reminder.MarkerKey]time.Time)}
}

func (s *MarkerStore) Exists(_ context.Context, key reminder.MarkerKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.markers[key]
	return ok, nil
}

func (s *MarkerStore) Save(_ context.Context, m reminder.Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[m.Key]; !ok {
		s.markers[m.Key] = m.FiredAt
	}
	return nil
}

func (s *MarkerStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, firedAt := range s.markers {
		if firedAt.Before(cutoff) {
			delete(s.markers, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MarkerStore) OldestFiredAt(_ context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var oldest time.Time
	found := false
	for _, firedAt := range s.markers {
		if !found || firedAt.Before(oldest) {
			oldest, found = firedAt, true
		}
	}
	return oldest, found, nil
}
