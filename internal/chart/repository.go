package chart

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/waveger/backend/pkg/database"
)

// Repository persists raw payloads in the charts table
type Repository struct {
	db database.Querier
}

// NewRepository creates a charts repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// Get returns the stored payload for (chartID, week)
func (r *Repository) Get(ctx context.Context, chartID string, week time.Time) ([]byte, bool, error) {
	var data []byte
	err := r.db.QueryRow(ctx,
		`SELECT data FROM charts WHERE title = $1 AND week = $2`,
		chartID, week,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Save stores raw unless the week is already stored, and returns the stored
// payload. The first writer wins so a cached week never changes.
func (r *Repository) Save(ctx context.Context, chartID string, week time.Time, raw []byte) ([]byte, error) {
	query := `
		INSERT INTO charts (title, week, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (title, week) DO UPDATE SET title = charts.title
		RETURNING data`

	var stored []byte
	if err := r.db.QueryRow(ctx, query, chartID, week, raw).Scan(&stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Weeks lists stored weeks for a chart, newest first
func (r *Repository) Weeks(ctx context.Context, chartID string, limit int) ([]time.Time, error) {
	rows, err := r.db.Query(ctx,
		`SELECT week FROM charts WHERE title = $1 ORDER BY week DESC LIMIT $2`,
		chartID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var weeks []time.Time
	for rows.Next() {
		var w time.Time
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}
