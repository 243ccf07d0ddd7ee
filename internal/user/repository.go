package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/database"
)

// ErrNotFound no user with the requested id
var ErrNotFound = errors.New("user not found")

// Repository scoring fields on the users table
type Repository struct {
	db database.Querier
}

// NewRepository creates a user repository on a pool or transaction
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

var _ contracts.UserRepository = (*Repository)(nil)

// ApplyDelta adds a batch's accumulated points and counts to one user.
// weekly_points is incremented along with total_points.
func (r *Repository) ApplyDelta(ctx context.Context, d contracts.UserDelta) error {
	query := `
		UPDATE users SET
			total_points        = total_points + $2,
			weekly_points       = weekly_points + $2,
			predictions_made    = predictions_made + $3,
			correct_predictions = correct_predictions + $4
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, d.UserID, d.Points, d.Count, d.Correct)
	if err != nil {
		return contracts.Persistence("apply user delta", err)
	}
	if tag.RowsAffected() == 0 {
		return contracts.Persistence("apply user delta", fmt.Errorf("user %d: %w", d.UserID, ErrNotFound))
	}
	return nil
}

// ResetWeeklyPoints zeroes weekly_points for everyone and reports how many rows changed
func (r *Repository) ResetWeeklyPoints(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE users SET weekly_points = 0 WHERE weekly_points <> 0`)
	if err != nil {
		return 0, contracts.Persistence("reset weekly points", err)
	}
	return tag.RowsAffected(), nil
}

// Get returns one user's scoring fields
func (r *Repository) Get(ctx context.Context, id int64) (*contracts.UserStats, error) {
	query := `
		SELECT id, username, total_points, weekly_points, predictions_made, correct_predictions, last_login
		FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, contracts.Persistence("get user", err)
	}
	return &u, nil
}

// TopByTotal returns users ordered by total_points, ties broken by id
func (r *Repository) TopByTotal(ctx context.Context, limit int) ([]contracts.UserStats, error) {
	query := `
		SELECT id, username, total_points, weekly_points, predictions_made, correct_predictions, last_login
		FROM users
		ORDER BY total_points DESC, id
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, contracts.Persistence("top users", err)
	}
	defer rows.Close()

	var out []contracts.UserStats
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, contracts.Persistence("scan user", err)
		}
		out = append(out, u)
	}
	return out, contracts.Persistence("top users", rows.Err())
}

// Create inserts a user with zeroed scores (seeding and tests)
func (r *Repository) Create(ctx context.Context, username, email string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (username, email) VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET email = users.email
		RETURNING id`,
		username, email,
	).Scan(&id)
	if err != nil {
		return 0, contracts.Persistence("create user", err)
	}
	return id, nil
}

// IDs lists every user id in ascending order
func (r *Repository) IDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, contracts.Persistence("list users", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, contracts.Persistence("list users", err)
	}
	return ids, nil
}

func scanUser(row pgx.Row) (contracts.UserStats, error) {
	var u contracts.UserStats
	err := row.Scan(&u.UserID, &u.Username, &u.TotalPoints, &u.WeeklyPoints,
		&u.PredictionsMade, &u.CorrectPredictions, &u.LastLogin)
	return u, err
}
