package prediction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/database"
)

// ErrAlreadyProcessed a result was written for a prediction another run already scored
var ErrAlreadyProcessed = errors.New("prediction already processed")

const predictionColumns = `
	p.id, p.user_id, p.contest_id, p.chart_id, p.chart_date, p.prediction_type,
	p.song_name, p.artist_name, p.predicted_position, p.predicted_change, p.processed, p.created_at`

// Repository predictions and prediction_results storage
type Repository struct {
	db database.Querier
}

// NewRepository creates a prediction repository on a pool or transaction
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

var _ contracts.PredictionRepository = (*Repository)(nil)

// Create appends a prediction
func (r *Repository) Create(ctx context.Context, p *contracts.Prediction) error {
	query := `
		INSERT INTO predictions
			(user_id, contest_id, chart_id, chart_date, prediction_type,
			 song_name, artist_name, predicted_position, predicted_change)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, processed, created_at`

	err := r.db.QueryRow(ctx, query,
		p.UserID, p.ContestID, p.ChartID, p.ChartDate, string(p.Type),
		p.SongName, p.ArtistName, p.PredictedPosition, p.PredictedChange,
	).Scan(&p.ID, &p.Processed, &p.CreatedAt)
	if err != nil {
		return contracts.Persistence("create prediction", err)
	}
	return nil
}

// CountForUser counts a user's predictions in one contest
func (r *Repository) CountForUser(ctx context.Context, userID, contestID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM predictions WHERE user_id = $1 AND contest_id = $2`,
		userID, contestID,
	).Scan(&n)
	if err != nil {
		return 0, contracts.Persistence("count predictions", err)
	}
	return n, nil
}

// Unprocessed loads the contest's predictions still awaiting a result, oldest first
func (r *Repository) Unprocessed(ctx context.Context, contestID int64) ([]contracts.Prediction, error) {
	query := `SELECT` + predictionColumns + `
		FROM predictions p
		WHERE p.contest_id = $1 AND p.processed = FALSE
		ORDER BY p.id`

	rows, err := r.db.Query(ctx, query, contestID)
	if err != nil {
		return nil, contracts.Persistence("load unprocessed predictions", err)
	}
	defer rows.Close()

	var out []contracts.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, contracts.Persistence("scan prediction", err)
		}
		out = append(out, p)
	}
	return out, contracts.Persistence("load unprocessed predictions", rows.Err())
}

// ListForUser returns a user's predictions with results, newest first
func (r *Repository) ListForUser(ctx context.Context, userID int64, f contracts.PredictionFilter) ([]contracts.PredictionWithResult, error) {
	where := []string{"p.user_id = $1"}
	args := []any{userID}

	if f.ContestID != nil {
		args = append(args, *f.ContestID)
		where = append(where, fmt.Sprintf("p.contest_id = $%d", len(args)))
	}
	if f.ChartID != "" {
		args = append(args, f.ChartID)
		where = append(where, fmt.Sprintf("p.chart_id = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		where = append(where, fmt.Sprintf("p.prediction_type = $%d", len(args)))
	}
	if f.Processed != nil {
		args = append(args, *f.Processed)
		where = append(where, fmt.Sprintf("p.processed = $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := `SELECT` + predictionColumns + `,
			r.id, r.actual_position, r.actual_change, r.is_correct, r.points_earned, r.processed_at
		FROM predictions p
		LEFT JOIN prediction_results r ON r.prediction_id = p.id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $` + fmt.Sprint(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, contracts.Persistence("list user predictions", err)
	}
	defer rows.Close()

	var out []contracts.PredictionWithResult
	for rows.Next() {
		var pr contracts.PredictionWithResult
		var ptype string
		var resID *int64
		var res contracts.PredictionResult
		var isCorrect *bool
		var points *int
		var processedAt *time.Time
		if err := rows.Scan(
			&pr.ID, &pr.UserID, &pr.ContestID, &pr.ChartID, &pr.ChartDate, &ptype,
			&pr.SongName, &pr.ArtistName, &pr.PredictedPosition, &pr.PredictedChange, &pr.Processed, &pr.CreatedAt,
			&resID, &res.ActualPosition, &res.ActualChange, &isCorrect, &points, &processedAt,
		); err != nil {
			return nil, contracts.Persistence("scan user prediction", err)
		}
		pr.Type = contracts.PredictionType(ptype)
		if resID != nil {
			res.ID = *resID
			res.PredictionID = pr.ID
			res.IsCorrect = isCorrect != nil && *isCorrect
			if points != nil {
				res.PointsEarned = *points
			}
			if processedAt != nil {
				res.ProcessedAt = *processedAt
			}
			pr.Result = &res
		}
		out = append(out, pr)
	}
	return out, contracts.Persistence("list user predictions", rows.Err())
}

// ScoredForContest returns every result of a contest in result insertion order
func (r *Repository) ScoredForContest(ctx context.Context, contestID int64) ([]contracts.ScoredPrediction, error) {
	query := `
		SELECT p.user_id, u.username, p.prediction_type, r.is_correct, r.points_earned
		FROM prediction_results r
		JOIN predictions p ON p.id = r.prediction_id
		JOIN users u ON u.id = p.user_id
		WHERE p.contest_id = $1
		ORDER BY r.id`

	rows, err := r.db.Query(ctx, query, contestID)
	if err != nil {
		return nil, contracts.Persistence("load contest results", err)
	}
	defer rows.Close()

	var out []contracts.ScoredPrediction
	for rows.Next() {
		var s contracts.ScoredPrediction
		var ptype string
		if err := rows.Scan(&s.UserID, &s.Username, &ptype, &s.IsCorrect, &s.PointsEarned); err != nil {
			return nil, contracts.Persistence("scan contest result", err)
		}
		s.Type = contracts.PredictionType(ptype)
		out = append(out, s)
	}
	return out, contracts.Persistence("load contest results", rows.Err())
}

// SaveResults flips each prediction to processed and inserts its result.
// Meant to run inside a transaction: a prediction that is already processed
// fails the whole call with ErrAlreadyProcessed.
func (r *Repository) SaveResults(ctx context.Context, results []contracts.PredictionResult) error {
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, res := range results {
		batch.Queue(`UPDATE predictions SET processed = TRUE WHERE id = $1 AND processed = FALSE`, res.PredictionID)
		batch.Queue(`
			INSERT INTO prediction_results
				(prediction_id, actual_position, actual_change, is_correct, points_earned, processed_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			res.PredictionID, res.ActualPosition, res.ActualChange, res.IsCorrect, res.PointsEarned, res.ProcessedAt,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for _, res := range results {
		tag, err := br.Exec()
		if err != nil {
			return contracts.Persistence("mark processed", err)
		}
		if tag.RowsAffected() != 1 {
			return contracts.Persistence("mark processed", fmt.Errorf("prediction %d: %w", res.PredictionID, ErrAlreadyProcessed))
		}
		if _, err := br.Exec(); err != nil {
			return contracts.Persistence("insert result", err)
		}
	}
	return nil
}

func scanPrediction(row pgx.Row) (contracts.Prediction, error) {
	var p contracts.Prediction
	var ptype string
	err := row.Scan(
		&p.ID, &p.UserID, &p.ContestID, &p.ChartID, &p.ChartDate, &ptype,
		&p.SongName, &p.ArtistName, &p.PredictedPosition, &p.PredictedChange, &p.Processed, &p.CreatedAt,
	)
	p.Type = contracts.PredictionType(ptype)
	return p, err
}
