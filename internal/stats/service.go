package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/redis"
)

// Leaderboard limits
const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// leaderboardBuckets are the only page sizes cached. Requests round up to a
// bucket and are cut back afterwards, so invalidation knows every key.
var leaderboardBuckets = []int{DefaultLeaderboardLimit, 25, 50, MaxLeaderboardLimit}

// ScoredSource loads the results of a contest
type ScoredSource interface {
	ScoredForContest(ctx context.Context, contestID int64) ([]contracts.ScoredPrediction, error)
}

// SummaryStore reads and writes contest aggregates
type SummaryStore interface {
	Get(ctx context.Context, id int64) (*contracts.Contest, error)
	SaveSummary(ctx context.Context, s contracts.ContestSummary) error
}

// Standings ranks users inside one contest
type Standings interface {
	ContestStandings(ctx context.Context, contestID int64, limit int) ([]contracts.LeaderboardEntry, error)
}

// UserRanking ranks users by lifetime points
type UserRanking interface {
	TopByTotal(ctx context.Context, limit int) ([]contracts.UserStats, error)
}

// Service recomputes contest summaries and serves leaderboards
type Service struct {
	scored     ScoredSource
	contests   SummaryStore
	standings  Standings
	users      UserRanking
	aggregator *Aggregator
	cache      *redis.Cache
	log        zerolog.Logger
}

// NewService creates a stats service. cache may be nil.
func NewService(scored ScoredSource, contests SummaryStore, standings Standings, users UserRanking, cache *redis.Cache, log zerolog.Logger) *Service {
	return &Service{
		scored:     scored,
		contests:   contests,
		standings:  standings,
		users:      users,
		aggregator: NewAggregator(log),
		cache:      cache,
		log:        log.With().Str("component", "stats.service").Logger(),
	}
}

// Recompute rebuilds and stores a contest's summary from its results
func (s *Service) Recompute(ctx context.Context, contestID int64) (*contracts.ContestSummary, error) {
	scored, err := s.scored.ScoredForContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("load results for contest %d: %w", contestID, err)
	}

	summary := s.aggregator.Aggregate(contestID, scored)
	if err := s.contests.SaveSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("save summary for contest %d: %w", contestID, err)
	}

	s.invalidate(ctx, contestID)
	return &summary, nil
}

// ContestStats returns the stored aggregate of a contest
func (s *Service) ContestStats(ctx context.Context, contestID int64) (*contracts.ContestSummary, error) {
	key := redis.ContestStatsKey(contestID)
	var cached contracts.ContestSummary
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	c, err := s.contests.Get(ctx, contestID)
	if err != nil {
		return nil, err
	}

	summary := contracts.ContestSummary{
		ContestID:          c.ID,
		TotalPredictions:   c.TotalPredictions,
		CorrectPredictions: c.CorrectPredictions,
		TotalPoints:        c.TotalPointsAwarded,
	}
	if c.Stats != nil {
		summary.Stats = *c.Stats
	}

	// An open contest's numbers still move.
	if !c.IsOpen() && c.Stats != nil {
		s.cacheSet(ctx, key, summary, redis.TTLLong)
	}
	return &summary, nil
}

// Leaderboard ranks users for a contest or, with contracts.AllTime, by lifetime points.
// Users with equal points share a rank.
func (s *Service) Leaderboard(ctx context.Context, scope contracts.LeaderboardScope, limit int) ([]contracts.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	bucket := leaderboardBucket(limit)
	key := redis.LeaderboardKey(scope.ContestID, bucket)
	var cached []contracts.LeaderboardEntry
	if s.cacheGet(ctx, key, &cached) {
		return truncate(cached, limit), nil
	}

	var entries []contracts.LeaderboardEntry
	if scope.IsAllTime() {
		users, err := s.users.TopByTotal(ctx, bucket)
		if err != nil {
			return nil, err
		}
		entries = make([]contracts.LeaderboardEntry, 0, len(users))
		for _, u := range users {
			entries = append(entries, contracts.LeaderboardEntry{
				UserID:             u.UserID,
				Username:           u.Username,
				Points:             u.TotalPoints,
				PredictionsMade:    u.PredictionsMade,
				CorrectPredictions: u.CorrectPredictions,
			})
		}
	} else {
		var err error
		entries, err = s.standings.ContestStandings(ctx, scope.ContestID, bucket)
		if err != nil {
			return nil, err
		}
	}

	assignRanks(entries)
	s.cacheSet(ctx, key, entries, redis.TTLShort)
	return truncate(entries, limit), nil
}

func leaderboardBucket(limit int) int {
	for _, b := range leaderboardBuckets {
		if limit <= b {
			return b
		}
	}
	return MaxLeaderboardLimit
}

// leaderboardKeys lists every cached board touched by a change to contestID
func leaderboardKeys(contestID int64) []string {
	keys := make([]string, 0, 2*len(leaderboardBuckets))
	for _, b := range leaderboardBuckets {
		keys = append(keys, redis.LeaderboardKey(0, b), redis.LeaderboardKey(contestID, b))
	}
	return keys
}

func truncate(entries []contracts.LeaderboardEntry, limit int) []contracts.LeaderboardEntry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// assignRanks gives standard competition ranks (1, 1, 3) to entries sorted by points
func assignRanks(entries []contracts.LeaderboardEntry) {
	for i := range entries {
		if i > 0 && entries[i].Points == entries[i-1].Points {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

func (s *Service) invalidate(ctx context.Context, contestID int64) {
	if s.cache == nil {
		return
	}
	keys := append([]string{redis.ContestStatsKey(contestID)}, leaderboardKeys(contestID)...)
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn().Err(err).Int64("contest_id", contestID).Msg("cache invalidation failed")
	}
}

func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	return hit
}

func (s *Service) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
