package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"uniportal_bot/internal/domain/reminder"

	"github.com/redis/go-redis/v9"
)

const markerKeyPrefix = "uniportal:markers"

// TTLFunc returns how long a marker saved at firedAt should live. Zero keeps it.
type TTLFunc func(firedAt time.Time) time.Duration

// MarkerStore keeps one scope of markers as plain keys holding the fired time,
// plus a sorted set indexed by fired time for pruning and rollover checks.
type MarkerStore struct {
	client *redis.Client
	scope  reminder.Scope
	ttl    TTLFunc
}

// NewMarkerStore accepts a nil ttl for markers that never expire on their own.
func NewMarkerStore(client *redis.Client, scope reminder.Scope, ttl TTLFunc) *MarkerStore {
	return &MarkerStore{client: client, scope: scope, ttl: ttl}
}

func (s *MarkerStore) key(k reminder.MarkerKey) string {
	return fmt.Sprintf("%s:%s:%s", markerKeyPrefix, s.scope, k)
}

func (s *MarkerStore) indexKey() string {
	return fmt.Sprintf("%s:%s:index", markerKeyPrefix, s.scope)
}

func (s *MarkerStore) Exists(ctx context.Context, k reminder.MarkerKey) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(k)).Result()
	if err != nil {
		return false, fmt.Errorf("error checking marker %s: %w", k, err)
	}
	return n > 0, nil
}

// Save uses SET NX so an existing marker keeps its first fired time.
func (s *MarkerStore) Save(ctx context.Context, m reminder.Marker) error {
	var ttl time.Duration
	if s.ttl != nil {
		ttl = s.ttl(m.FiredAt)
	}

	created, err := s.client.SetNX(ctx, s.key(m.Key), m.FiredAt.UnixMilli(), ttl).Result()
	if err != nil {
		return fmt.Errorf("error saving marker %s: %w", m.Key, err)
	}
	if !created {
		return nil
	}

	err = s.client.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(m.FiredAt.UnixMilli()), Member: string(m.Key)}).Err()
	if err != nil {
		return fmt.Errorf("error indexing marker %s: %w", m.Key, err)
	}
	return nil
}

func (s *MarkerStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	maxScore := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	members, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{Min: "-inf", Max: maxScore}).Result()
	if err != nil {
		return 0, fmt.Errorf("error listing markers to prune: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(members))
	for _, member := range members {
		keys = append(keys, s.key(reminder.MarkerKey(member)))
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRemRangeByScore(ctx, s.indexKey(), "-inf", maxScore)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("error pruning markers: %w", err)
	}
	return int64(len(members)), nil
}

func (s *MarkerStore) OldestFiredAt(ctx context.Context) (time.Time, bool, error) {
	oldest, err := s.client.ZRangeWithScores(ctx, s.indexKey(), 0, 0).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return time.Time{}, false, fmt.Errorf("error reading oldest marker: %w", err)
	}
	if len(oldest) == 0 {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(int64(oldest[0].Score)), true, nil
}
