package stats

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/database"
)

// Repository leaderboard queries
type Repository struct {
	db database.Querier
}

// NewRepository creates a leaderboard repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// ContestStandings sums each user's points over one contest's results
func (r *Repository) ContestStandings(ctx context.Context, contestID int64, limit int) ([]contracts.LeaderboardEntry, error) {
	query := `
		SELECT u.id, u.username,
			COALESCE(SUM(r.points_earned), 0) AS points,
			COUNT(r.id) AS made,
			COUNT(r.id) FILTER (WHERE r.is_correct) AS correct
		FROM prediction_results r
		JOIN predictions p ON p.id = r.prediction_id
		JOIN users u ON u.id = p.user_id
		WHERE p.contest_id = $1
		GROUP BY u.id, u.username
		ORDER BY points DESC, u.id
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, contestID, limit)
	if err != nil {
		return nil, contracts.Persistence("contest standings", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.LeaderboardEntry, error) {
		var e contracts.LeaderboardEntry
		err := row.Scan(&e.UserID, &e.Username, &e.Points, &e.PredictionsMade, &e.CorrectPredictions)
		return e, err
	})
	if err != nil {
		return nil, contracts.Persistence("contest standings", err)
	}
	return entries, nil
}
