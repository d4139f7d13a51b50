package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"uniportal_bot/internal/domain/dashboard"
)

type PostgresDashboardRepository struct {
	db *sql.DB
	id string
}

// NewPostgresDashboardRepository stores the blob of the dashboard identified by id.
func NewPostgresDashboardRepository(db *sql.DB, id string) *PostgresDashboardRepository {
	return &PostgresDashboardRepository{db: db, id: id}
}

func (r *PostgresDashboardRepository) Load(ctx context.Context) (*dashboard.State, error) {
	query := `SELECT state FROM dashboard_state WHERE id = $1`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, r.id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dashboard.ErrNotFound
		}
		return nil, fmt.Errorf("error loading dashboard state: %w", translateError(err))
	}

	state := &dashboard.State{}
	if err := json.Unmarshal(raw, state); err != nil {
		return nil, fmt.Errorf("error decoding dashboard state: %w", err)
	}
	return state, nil
}

func (r *PostgresDashboardRepository) Save(ctx context.Context, s *dashboard.State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("error encoding dashboard state: %w", err)
	}

	query := `INSERT INTO dashboard_state (id, state, updated_at)
               VALUES ($1, $2, NOW())
               ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, r.id, raw); err != nil {
		return fmt.Errorf("error saving dashboard state: %w", translateError(err))
	}
	return nil
}
