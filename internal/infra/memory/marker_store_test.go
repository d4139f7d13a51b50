package memory

import (
	"context"
	"testing"
	"time"

	"uniportal_bot/internal/domain/reminder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerStore(t *testing.T) {
	ctx := context.Background()
	s := NewMarkerStore()
	base := time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)

	_, found, err := s.OldestFiredAt(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Save(ctx, reminder.Marker{Key: "a", FiredAt: base}))
	require.NoError(t, s.Save(ctx, reminder.Marker{Key: "a", FiredAt: base.Add(time.Hour)}))
	require.NoError(t, s.Save(ctx, reminder.Marker{Key: "b", FiredAt: base.Add(-48 * time.Hour)}))

	oldest, found, err := s.OldestFiredAt(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, base.Add(-48*time.Hour), oldest)

	removed, err := s.DeleteOlderThan(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	ok, _ := s.Exists(ctx, "a")
	assert.True(t, ok)
	oldest, _, _ = s.OldestFiredAt(ctx)
	assert.Equal(t, base, oldest, "saving twice keeps the first fired time")
}

func TestDashboardRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDashboardRepository()
	_, err := repo.Load(ctx)
	require.Error(t, err)
}
