package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: repository interfaces are defined here

// ContestRepository stores contest windows and lifecycle state
type ContestRepository interface {
	// CloseActive closes the most recent open contest. ok=false when none was open.
	CloseActive(ctx context.Context, now time.Time) (id int64, ok bool, err error)
	// CreateOpen inserts an open contest unless one exists (ErrOpenContestExists).
	CreateOpen(ctx context.Context, start, end, release time.Time) (*Contest, error)
	GetOpen(ctx context.Context) (*Contest, error)
	GetByID(ctx context.Context, id int64) (*Contest, error)
	List(ctx context.Context, limit int) ([]Contest, error)
	// ClosedWithPending lists closed contests still holding unprocessed predictions.
	ClosedWithPending(ctx context.Context) ([]int64, error)
	SaveSummary(ctx context.Context, s ContestSummary) error
}

// PredictionRepository stores predictions and their results
type PredictionRepository interface {
	Create(ctx context.Context, p *Prediction) error
	CountForUser(ctx context.Context, userID, contestID int64) (int, error)
	Unprocessed(ctx context.Context, contestID int64) ([]Prediction, error)
	ListForUser(ctx context.Context, userID int64, f PredictionFilter) ([]PredictionWithResult, error)
	ScoredForContest(ctx context.Context, contestID int64) ([]ScoredPrediction, error)
}

// UserRepository mutates the scoring fields on users
type UserRepository interface {
	ApplyDelta(ctx context.Context, d UserDelta) error
	ResetWeeklyPoints(ctx context.Context) (int64, error)
	Get(ctx context.Context, id int64) (*UserStats, error)
	TopByTotal(ctx context.Context, limit int) ([]UserStats, error)
}
