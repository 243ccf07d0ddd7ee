package stats

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/wonny/waveger/backend/internal/contracts"
)

// TopPerformerCount number of users kept in a contest's top performers
const TopPerformerCount = 10

// Aggregator builds contest summaries from scored predictions
type Aggregator struct {
	topN int
	log  zerolog.Logger
}

// NewAggregator creates an aggregator keeping the top 10 performers
func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{
		topN: TopPerformerCount,
		log:  log.With().Str("component", "stats.aggregator").Logger(),
	}
}

// Aggregate computes totals, top performers and the per-type breakdown.
// scored must be in result insertion order: ties between performers keep the
// order in which each user first appears.
func (a *Aggregator) Aggregate(contestID int64, scored []contracts.ScoredPrediction) contracts.ContestSummary {
	summary := Aggregate(contestID, scored, a.topN)

	a.log.Info().
		Int64("contest_id", contestID).
		Int("total", summary.TotalPredictions).
		Int("correct", summary.CorrectPredictions).
		Int("points", summary.TotalPoints).
		Int("performers", len(summary.Stats.TopPerformers)).
		Msg("contest aggregated")

	return summary
}

// Aggregate is the pure form of Aggregator.Aggregate
func Aggregate(contestID int64, scored []contracts.ScoredPrediction, topN int) contracts.ContestSummary {
	summary := contracts.ContestSummary{ContestID: contestID}

	performers := make([]contracts.TopPerformer, 0)
	index := make(map[int64]int)
	byType := make(map[contracts.PredictionType]*typeAccumulator)

	for _, s := range scored {
		summary.TotalPredictions++
		summary.TotalPoints += s.PointsEarned
		if s.IsCorrect {
			summary.CorrectPredictions++
		}

		i, ok := index[s.UserID]
		if !ok {
			i = len(performers)
			index[s.UserID] = i
			performers = append(performers, contracts.TopPerformer{UserID: s.UserID, Username: s.Username})
		}
		performers[i].Points += s.PointsEarned

		acc := byType[s.Type]
		if acc == nil {
			acc = &typeAccumulator{}
			byType[s.Type] = acc
		}
		acc.add(s)
	}

	sort.SliceStable(performers, func(i, j int) bool {
		return performers[i].Points > performers[j].Points
	})
	if len(performers) > topN {
		performers = performers[:topN]
	}

	typeStats := make([]contracts.TypeStats, 0, len(byType))
	for _, t := range contracts.PredictionTypes {
		if acc := byType[t]; acc != nil {
			typeStats = append(typeStats, acc.stats(t))
		}
	}

	summary.Stats = contracts.ContestStats{
		TopPerformers:   performers,
		PredictionStats: typeStats,
	}
	return summary
}

type typeAccumulator struct {
	total   int
	correct int
	points  int
}

func (t *typeAccumulator) add(s contracts.ScoredPrediction) {
	t.total++
	t.points += s.PointsEarned
	if s.IsCorrect {
		t.correct++
	}
}

func (t *typeAccumulator) stats(pt contracts.PredictionType) contracts.TypeStats {
	out := contracts.TypeStats{Type: pt, Total: t.total, Correct: t.correct}
	if t.total > 0 {
		out.SuccessRate = round2(float64(t.correct) / float64(t.total) * 100)
		out.AvgPoints = round2(float64(t.points) / float64(t.total))
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
