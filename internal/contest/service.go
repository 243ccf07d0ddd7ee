package contest

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/waveger/backend/internal/contestconfig"
	"github.com/wonny/waveger/backend/internal/contracts"
)

// Service drives the contest state machine: OPEN -(close)-> CLOSED, and a
// separate step that opens the next window.
type Service struct {
	repo  contracts.ContestRepository
	rules *contestconfig.Config
	clock contracts.Clock
	log   zerolog.Logger
}

// NewService creates a contest lifecycle service
func NewService(repo contracts.ContestRepository, rules *contestconfig.Config, clock contracts.Clock, log zerolog.Logger) *Service {
	if clock == nil {
		clock = contracts.SystemClock{}
	}
	return &Service{
		repo:  repo,
		rules: rules,
		clock: clock,
		log:   log.With().Str("component", "contest.service").Logger(),
	}
}

// Today returns the current calendar date in the rules timezone
func (s *Service) Today() time.Time {
	return contracts.DateOnly(s.clock.Now().In(s.rules.Location()))
}

// NextReleaseDate returns the first release weekday strictly after today
func NextReleaseDate(today time.Time, release time.Weekday) time.Time {
	d := contracts.DateOnly(today)
	ahead := (int(release) - int(d.Weekday()) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return d.AddDate(0, 0, ahead)
}

// Window returns the start, end and release dates of a contest opened today
func (s *Service) Window() (start, end, release time.Time) {
	start = s.Today()
	release = NextReleaseDate(start, s.rules.ReleaseWeekday())
	end = release.AddDate(0, 0, -1)
	return start, end, release
}

// CloseActive closes the open contest. ok=false when none was open.
func (s *Service) CloseActive(ctx context.Context) (int64, bool, error) {
	id, ok, err := s.repo.CloseActive(ctx, s.clock.Now())
	if err != nil {
		return 0, false, err
	}
	if !ok {
		s.log.Info().Msg("no open contest to close")
		return 0, false, nil
	}
	s.log.Info().Int64("contest_id", id).Msg("contest closed")
	return id, true, nil
}

// CreateNext opens the next contest window. Fails with
// contracts.ErrOpenContestExists if a contest is still open.
func (s *Service) CreateNext(ctx context.Context) (*contracts.Contest, error) {
	start, end, release := s.Window()

	c, err := s.repo.CreateOpen(ctx, start, end, release)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("contest_id", c.ID).
		Str("start_date", start.Format("2006-01-02")).
		Str("end_date", end.Format("2006-01-02")).
		Str("chart_release_date", release.Format("2006-01-02")).
		Msg("contest opened")
	return c, nil
}

// EnsureOpen returns the open contest, opening one if none exists.
// created reports whether this call opened it.
func (s *Service) EnsureOpen(ctx context.Context) (c *contracts.Contest, created bool, err error) {
	c, err = s.repo.GetOpen(ctx)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, contracts.ErrNoOpenContest) {
		return nil, false, err
	}

	c, err = s.CreateNext(ctx)
	if errors.Is(err, contracts.ErrOpenContestExists) {
		// Lost a race with another creator.
		c, err = s.repo.GetOpen(ctx)
		return c, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// Current returns the open contest or contracts.ErrNoOpenContest
func (s *Service) Current(ctx context.Context) (*contracts.Contest, error) {
	return s.repo.GetOpen(ctx)
}

// Get returns one contest
func (s *Service) Get(ctx context.Context, id int64) (*contracts.Contest, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns recent contests, newest first
func (s *Service) List(ctx context.Context, limit int) ([]contracts.Contest, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.List(ctx, limit)
}

// PendingClosed lists closed contests whose evaluation did not finish
func (s *Service) PendingClosed(ctx context.Context) ([]int64, error) {
	return s.repo.ClosedWithPending(ctx)
}

// SaveSummary stores derived contest statistics
func (s *Service) SaveSummary(ctx context.Context, summary contracts.ContestSummary) error {
	return s.repo.SaveSummary(ctx, summary)
}
