package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/waveger/backend/internal/contestconfig"
	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/metrics"
)

// maxParallelCharts bounds concurrent snapshot fetches
const maxParallelCharts = 4

// PredictionLoader loads what a contest still has to score
type PredictionLoader interface {
	Unprocessed(ctx context.Context, contestID int64) ([]contracts.Prediction, error)
}

// ContestReader looks up a contest
type ContestReader interface {
	Get(ctx context.Context, id int64) (*contracts.Contest, error)
}

// Processor evaluates a contest's unprocessed predictions against the
// published charts and commits the results
type Processor struct {
	predictions PredictionLoader
	contests    ContestReader
	fetcher     contracts.SnapshotFetcher
	evaluator   contracts.Evaluator
	committer   Committer
	rules       *contestconfig.Config
	clock       contracts.Clock
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewProcessor creates a batch processor. m may be nil.
func NewProcessor(
	predictions PredictionLoader,
	contests ContestReader,
	fetcher contracts.SnapshotFetcher,
	evaluator contracts.Evaluator,
	committer Committer,
	rules *contestconfig.Config,
	clock contracts.Clock,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Processor {
	if clock == nil {
		clock = contracts.SystemClock{}
	}
	return &Processor{
		predictions: predictions,
		contests:    contests,
		fetcher:     fetcher,
		evaluator:   evaluator,
		committer:   committer,
		rules:       rules,
		clock:       clock,
		metrics:     m,
		log:         log.With().Str("component", "batch.processor").Logger(),
	}
}

// chartPair holds the indexed release and lookback charts, built once per chart
type chartPair struct {
	current  contracts.PositionIndex
	previous contracts.PositionIndex
}

// EvaluateContest scores every unprocessed prediction of a contest.
// A contest whose release date is still ahead is left untouched. Charts
// whose snapshots cannot be fetched are deferred: their predictions stay
// unprocessed for a later run. A persistence failure rolls back the whole
// contest.
func (p *Processor) EvaluateContest(ctx context.Context, contestID int64) (*contracts.EvalReport, error) {
	report := &contracts.EvalReport{ContestID: contestID}

	contest, err := p.contests.Get(ctx, contestID)
	if err != nil {
		return nil, err
	}

	preds, err := p.predictions.Unprocessed(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("load predictions for contest %d: %w", contestID, err)
	}
	report.Loaded = len(preds)
	if len(preds) == 0 {
		p.log.Info().Int64("contest_id", contestID).Msg("no unprocessed predictions")
		return report, nil
	}

	release := contracts.DateOnly(contest.ChartReleaseDate)
	if today := contracts.DateOnly(p.clock.Now().In(p.rules.Location())); release.After(today) {
		report.Unreleased = true
		report.Skipped = len(preds)
		p.log.Info().
			Int64("contest_id", contestID).
			Time("release", release).
			Int("predictions", len(preds)).
			Msg("chart not released yet, contest left unprocessed")
		return report, nil
	}
	previous := release.Add(-p.rules.Lookback())

	byChart := groupByChart(preds)
	charts, deferred, err := p.fetchCharts(ctx, byChart, release, previous)
	if err != nil {
		return nil, err
	}
	report.DeferredCharts = deferred

	now := p.clock.Now()
	deltas := make(map[int64]*contracts.UserDelta)
	var results []contracts.PredictionResult
	var types []contracts.PredictionType

	for _, chartID := range sortedKeys(byChart) {
		pair, ok := charts[chartID]
		if !ok {
			report.Skipped += len(byChart[chartID])
			continue
		}
		for _, pred := range byChart[chartID] {
			outcome, err := p.evaluator.Evaluate(pred, pair.current, pair.previous)
			if err != nil {
				report.Skipped++
				p.log.Warn().Err(err).
					Int64("prediction_id", pred.ID).
					Str("type", string(pred.Type)).
					Msg("prediction skipped")
				continue
			}

			results = append(results, contracts.PredictionResult{
				PredictionID:   pred.ID,
				ActualPosition: outcome.ActualPosition,
				ActualChange:   outcome.ActualChange,
				IsCorrect:      outcome.IsCorrect,
				PointsEarned:   outcome.Points,
				ProcessedAt:    now,
			})
			types = append(types, pred.Type)

			d := deltas[pred.UserID]
			if d == nil {
				d = &contracts.UserDelta{UserID: pred.UserID}
				deltas[pred.UserID] = d
			}
			d.Points += outcome.Points
			d.Count++
			if outcome.IsCorrect {
				d.Correct++
				report.Correct++
			}
			report.PointsAwarded += outcome.Points
		}
	}

	if len(results) == 0 {
		p.log.Warn().Int64("contest_id", contestID).Int("skipped", report.Skipped).Msg("nothing to commit")
		return report, nil
	}

	ordered := sortedDeltas(deltas)
	if err := p.committer.Commit(ctx, results, ordered); err != nil {
		return nil, fmt.Errorf("commit contest %d: %w", contestID, err)
	}

	report.Evaluated = len(results)
	report.UsersUpdated = len(ordered)
	for i, r := range results {
		p.metrics.ObservePrediction(string(types[i]), r.IsCorrect, r.PointsEarned)
	}

	p.log.Info().
		Int64("contest_id", contestID).
		Int("evaluated", report.Evaluated).
		Int("correct", report.Correct).
		Int("points", report.PointsAwarded).
		Int("users", report.UsersUpdated).
		Int("skipped", report.Skipped).
		Strs("deferred_charts", report.DeferredCharts).
		Msg("contest evaluated")

	return report, nil
}

// fetchCharts loads the release and lookback snapshot of every chart in
// parallel. A source failure defers the chart; any other error aborts.
func (p *Processor) fetchCharts(ctx context.Context, byChart map[string][]contracts.Prediction, release, previous time.Time) (map[string]chartPair, []string, error) {
	var (
		mu       sync.Mutex
		charts   = make(map[string]chartPair, len(byChart))
		deferred []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelCharts)

	for _, chartID := range sortedKeys(byChart) {
		chartID := chartID
		g.Go(func() error {
			cur, err := p.fetcher.FetchSnapshot(gctx, chartID, release)
			var prev *contracts.Snapshot
			if err == nil {
				prev, err = p.fetcher.FetchSnapshot(gctx, chartID, previous)
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				charts[chartID] = chartPair{current: cur.PositionIndex(), previous: prev.PositionIndex()}
			case errors.Is(err, contracts.ErrSourceUnavailable):
				deferred = append(deferred, chartID)
				p.log.Warn().Err(err).
					Str("chart_id", chartID).
					Int("predictions", len(byChart[chartID])).
					Msg("chart deferred")
			default:
				return fmt.Errorf("fetch %s: %w", chartID, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	sort.Strings(deferred)
	return charts, deferred, nil
}

func groupByChart(preds []contracts.Prediction) map[string][]contracts.Prediction {
	out := make(map[string][]contracts.Prediction)
	for _, p := range preds {
		out[p.ChartID] = append(out[p.ChartID], p)
	}
	return out
}

func sortedKeys(m map[string][]contracts.Prediction) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedDeltas orders deltas by user id so concurrent writers lock users in the same order
func sortedDeltas(m map[int64]*contracts.UserDelta) []contracts.UserDelta {
	out := make([]contracts.UserDelta, 0, len(m))
	for _, d := range m {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
