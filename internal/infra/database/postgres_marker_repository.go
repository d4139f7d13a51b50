package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"uniportal_bot/internal/domain/reminder"
)

// PostgresMarkerRepository stores fired markers of one scope in reminder_markers.
type PostgresMarkerRepository struct {
	db    *sql.DB
	scope reminder.Scope
}

func NewPostgresMarkerRepository(db *sql.DB, scope reminder.Scope) *PostgresMarkerRepository {
	return &PostgresMarkerRepository{db: db, scope: scope}
}

func (r *PostgresMarkerRepository) Exists(ctx context.Context, key reminder.MarkerKey) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reminder_markers WHERE scope = $1 AND marker_key = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, r.scope, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking marker %s: %w", key, translateError(err))
	}
	return exists, nil
}

// Save keeps the first fired_at when the marker already exists.
func (r *PostgresMarkerRepository) Save(ctx context.Context, m reminder.Marker) error {
	query := `INSERT INTO reminder_markers (marker_key, scope, fired_at)
               VALUES ($1, $2, $3)
               ON CONFLICT (scope, marker_key) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, m.Key, r.scope, m.FiredAt); err != nil {
		return fmt.Errorf("error saving marker %s: %w", m.Key, translateError(err))
	}
	return nil
}

func (r *PostgresMarkerRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM reminder_markers WHERE scope = $1 AND fired_at < $2`
	res, err := r.db.ExecContext(ctx, query, r.scope, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error pruning markers: %w", translateError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting pruned markers: %w", err)
	}
	return n, nil
}

func (r *PostgresMarkerRepository) OldestFiredAt(ctx context.Context) (time.Time, bool, error) {
	query := `SELECT MIN(fired_at) FROM reminder_markers WHERE scope = $1`

	var oldest sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, r.scope).Scan(&oldest); err != nil {
		return time.Time{}, false, fmt.Errorf("error reading oldest marker: %w", translateError(err))
	}
	return oldest.Time, oldest.Valid, nil
}
