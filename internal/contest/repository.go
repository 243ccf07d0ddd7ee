package contest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/database"
)

const contestColumns = `
	id, start_date, end_date, chart_release_date, status, closed_at,
	total_predictions, correct_predictions, total_points_awarded, contest_stats, created_at`

// Repository weekly_contests storage
type Repository struct {
	db database.Querier
}

// NewRepository creates a contest repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

var _ contracts.ContestRepository = (*Repository)(nil)

// CloseActive closes the most recent open contest in one statement
func (r *Repository) CloseActive(ctx context.Context, now time.Time) (int64, bool, error) {
	query := `
		UPDATE weekly_contests
		SET status = 'closed', closed_at = $1
		WHERE id = (
			SELECT id FROM weekly_contests
			WHERE status = 'open'
			ORDER BY start_date DESC, id DESC
			LIMIT 1
			FOR UPDATE
		)
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query, now).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, contracts.Persistence("close active contest", err)
	}
	return id, true, nil
}

// CreateOpen inserts an open contest unless one is already open
func (r *Repository) CreateOpen(ctx context.Context, start, end, release time.Time) (*contracts.Contest, error) {
	query := `
		INSERT INTO weekly_contests (start_date, end_date, chart_release_date, status)
		SELECT $1, $2, $3, 'open'
		WHERE NOT EXISTS (SELECT 1 FROM weekly_contests WHERE status = 'open')
		RETURNING` + contestColumns

	c, err := scanContest(r.db.QueryRow(ctx, query, start, end, release))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrOpenContestExists
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, contracts.ErrOpenContestExists
	}
	if err != nil {
		return nil, contracts.Persistence("create contest", err)
	}
	return c, nil
}

// GetOpen returns the open contest or ErrNoOpenContest
func (r *Repository) GetOpen(ctx context.Context) (*contracts.Contest, error) {
	query := `SELECT` + contestColumns + `
		FROM weekly_contests
		WHERE status = 'open'
		ORDER BY start_date DESC, id DESC
		LIMIT 1`

	c, err := scanContest(r.db.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNoOpenContest
	}
	if err != nil {
		return nil, contracts.Persistence("get open contest", err)
	}
	return c, nil
}

// GetByID returns one contest or ErrContestNotFound
func (r *Repository) GetByID(ctx context.Context, id int64) (*contracts.Contest, error) {
	query := `SELECT` + contestColumns + ` FROM weekly_contests WHERE id = $1`

	c, err := scanContest(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("contest %d: %w", id, contracts.ErrContestNotFound)
	}
	if err != nil {
		return nil, contracts.Persistence("get contest", err)
	}
	return c, nil
}

// List returns the most recent contests
func (r *Repository) List(ctx context.Context, limit int) ([]contracts.Contest, error) {
	query := `SELECT` + contestColumns + `
		FROM weekly_contests
		ORDER BY start_date DESC, id DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, contracts.Persistence("list contests", err)
	}
	defer rows.Close()

	var contests []contracts.Contest
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, contracts.Persistence("scan contest", err)
		}
		contests = append(contests, *c)
	}
	return contests, contracts.Persistence("list contests", rows.Err())
}

// ClosedWithPending lists closed contests that still hold unprocessed predictions
func (r *Repository) ClosedWithPending(ctx context.Context) ([]int64, error) {
	query := `
		SELECT DISTINCT c.id
		FROM weekly_contests c
		JOIN predictions p ON p.contest_id = c.id
		WHERE c.status = 'closed' AND p.processed = FALSE
		ORDER BY c.id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, contracts.Persistence("pending contests", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, contracts.Persistence("scan contest id", err)
		}
		ids = append(ids, id)
	}
	return ids, contracts.Persistence("pending contests", rows.Err())
}

// SaveSummary stores the derived statistics attachment
func (r *Repository) SaveSummary(ctx context.Context, s contracts.ContestSummary) error {
	stats, err := json.Marshal(s.Stats)
	if err != nil {
		return fmt.Errorf("marshal contest stats: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE weekly_contests
		SET total_predictions = $2,
			correct_predictions = $3,
			total_points_awarded = $4,
			contest_stats = $5
		WHERE id = $1`,
		s.ContestID, s.TotalPredictions, s.CorrectPredictions, s.TotalPoints, stats,
	)
	if err != nil {
		return contracts.Persistence("save contest stats", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("contest %d: %w", s.ContestID, contracts.ErrContestNotFound)
	}
	return nil
}

func scanContest(row pgx.Row) (*contracts.Contest, error) {
	var c contracts.Contest
	var status string
	var stats []byte
	if err := row.Scan(
		&c.ID, &c.StartDate, &c.EndDate, &c.ChartReleaseDate, &status, &c.ClosedAt,
		&c.TotalPredictions, &c.CorrectPredictions, &c.TotalPointsAwarded, &stats, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	c.Status = contracts.ContestStatus(status)

	if len(stats) > 0 {
		var s contracts.ContestStats
		if err := json.Unmarshal(stats, &s); err != nil {
			return nil, fmt.Errorf("decode contest_stats: %w", err)
		}
		c.Stats = &s
	}
	return &c, nil
}
