package batch

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/internal/prediction"
	"github.com/wonny/waveger/backend/internal/user"
	"github.com/wonny/waveger/backend/pkg/database"
)

// Committer persists one contest's evaluation as a single unit
type Committer interface {
	Commit(ctx context.Context, results []contracts.PredictionResult, deltas []contracts.UserDelta) error
}

// PGCommitter writes results, processed flags and user deltas in one transaction
type PGCommitter struct {
	db *database.DB
}

// NewPGCommitter creates a Postgres committer
func NewPGCommitter(db *database.DB) *PGCommitter {
	return &PGCommitter{db: db}
}

// Commit implements Committer. Any failure rolls back the whole contest.
func (c *PGCommitter) Commit(ctx context.Context, results []contracts.PredictionResult, deltas []contracts.UserDelta) error {
	return c.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := prediction.NewRepository(tx).SaveResults(ctx, results); err != nil {
			return err
		}
		users := user.NewRepository(tx)
		for _, d := range deltas {
			if err := users.ApplyDelta(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
}
