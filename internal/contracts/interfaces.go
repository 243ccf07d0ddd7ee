package contracts

import (
	"context"
	"time"
)

// SnapshotFetcher reads one published chart week
// ⭐ SSOT: the only way the core reads rankings
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, chartID string, date time.Time) (*Snapshot, error)
}

// Evaluator scores one prediction against two snapshots
type Evaluator interface {
	Evaluate(p Prediction, current, previous PositionIndex) (Outcome, error)
}

// Clock yields the current time; tests pin it
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T
type FixedClock struct{ T time.Time }

// Now returns the pinned time
func (c FixedClock) Now() time.Time { return c.T }
