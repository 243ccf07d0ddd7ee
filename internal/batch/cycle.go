package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/metrics"
)

// Cycle outcomes, used as metric labels
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Lifecycle transitions contests
type Lifecycle interface {
	CloseActive(ctx context.Context) (int64, bool, error)
	CreateNext(ctx context.Context) (*contracts.Contest, error)
	Current(ctx context.Context) (*contracts.Contest, error)
	PendingClosed(ctx context.Context) ([]int64, error)
}

// Summarizer rebuilds a contest's stored aggregate
type Summarizer interface {
	Recompute(ctx context.Context, contestID int64) (*contracts.ContestSummary, error)
}

// WeeklyResetter zeroes every user's weekly points
type WeeklyResetter interface {
	ResetWeeklyPoints(ctx context.Context) (int64, error)
}

// Cycle runs the weekly close -> evaluate -> aggregate -> reset -> open sequence
type Cycle struct {
	contests  Lifecycle
	processor *Processor
	stats     Summarizer
	users     WeeklyResetter
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewCycle creates a weekly cycle runner. m may be nil.
func NewCycle(contests Lifecycle, processor *Processor, stats Summarizer, users WeeklyResetter, m *metrics.Metrics, log zerolog.Logger) *Cycle {
	return &Cycle{
		contests:  contests,
		processor: processor,
		stats:     stats,
		users:     users,
		metrics:   m,
		log:       log.With().Str("component", "batch.cycle").Logger(),
	}
}

// Run executes one weekly cycle. Safe to re-run: already processed
// predictions are never scored twice. Closed contests left with unprocessed
// predictions by an earlier run are evaluated again. An evaluation failure
// aborts before the next contest is opened.
func (c *Cycle) Run(ctx context.Context) (*contracts.CycleReport, error) {
	start := time.Now()
	report := &contracts.CycleReport{RunID: uuid.NewString()}
	log := c.log.With().Str("run_id", report.RunID).Logger()

	log.Info().Msg("weekly cycle started")

	if err := c.run(ctx, log, report); err != nil {
		report.Duration = time.Since(start)
		c.metrics.ObserveCycle(OutcomeFailed, report.Duration)
		log.Error().Err(err).Dur("duration", report.Duration).Msg("weekly cycle failed")
		return report, err
	}

	report.Duration = time.Since(start)
	c.metrics.ObserveCycle(OutcomeSuccess, report.Duration)

	evt := log.Info().Dur("duration", report.Duration).Int64("weekly_reset", report.WeeklyReset)
	if report.ClosedContestID != nil {
		evt = evt.Int64("closed_contest_id", *report.ClosedContestID)
	}
	if report.NextContest != nil {
		evt = evt.Int64("next_contest_id", report.NextContest.ID)
	}
	evt.Msg("weekly cycle completed")

	return report, nil
}

func (c *Cycle) run(ctx context.Context, log zerolog.Logger, report *contracts.CycleReport) error {
	// 1. Close
	closedID, closed, err := c.contests.CloseActive(ctx)
	if err != nil {
		return fmt.Errorf("close contest: %w", err)
	}
	if closed {
		report.ClosedContestID = &closedID
	}

	// 2. Evaluate + 3. Aggregate
	pending, err := c.contests.PendingClosed(ctx)
	if err != nil {
		return fmt.Errorf("list pending contests: %w", err)
	}
	for _, id := range toEvaluate(closedID, closed, pending) {
		eval, err := c.processor.EvaluateContest(ctx, id)
		if err != nil {
			return fmt.Errorf("evaluate contest %d: %w", id, err)
		}
		summary, err := c.stats.Recompute(ctx, id)
		if err != nil {
			return fmt.Errorf("aggregate contest %d: %w", id, err)
		}
		if closed && id == closedID {
			report.Evaluation = eval
			report.Summary = summary
		} else {
			log.Info().Int64("contest_id", id).Int("evaluated", eval.Evaluated).Msg("pending contest evaluated")
		}
	}

	// 4. Weekly reset
	n, err := c.users.ResetWeeklyPoints(ctx)
	if err != nil {
		return fmt.Errorf("reset weekly points: %w", err)
	}
	report.WeeklyReset = n

	// 5. Open next
	next, err := c.contests.CreateNext(ctx)
	if errors.Is(err, contracts.ErrOpenContestExists) {
		log.Warn().Msg("another creator opened the next contest")
		next, err = c.contests.Current(ctx)
	}
	if err != nil {
		return fmt.Errorf("open next contest: %w", err)
	}
	report.NextContest = next
	return nil
}

// toEvaluate lists the just-closed contest and every pending one, oldest first
func toEvaluate(closedID int64, closed bool, pending []int64) []int64 {
	seen := make(map[int64]bool, len(pending)+1)
	var ids []int64
	if closed {
		seen[closedID] = true
		ids = append(ids, closedID)
	}
	for _, id := range pending {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
