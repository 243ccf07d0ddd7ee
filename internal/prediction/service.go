package prediction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wonny/waveger/backend/internal/contestconfig"
	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/metrics"
)

// ContestReader looks up a contest by id
type ContestReader interface {
	Get(ctx context.Context, id int64) (*contracts.Contest, error)
}

// Service validates and records predictions
// ⭐ SSOT: submissions are validated only here
type Service struct {
	repo     contracts.PredictionRepository
	contests ContestReader
	rules    *contestconfig.Config
	clock    contracts.Clock
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// NewService creates a prediction service. m may be nil.
func NewService(repo contracts.PredictionRepository, contests ContestReader, rules *contestconfig.Config, clock contracts.Clock, m *metrics.Metrics, log zerolog.Logger) *Service {
	if clock == nil {
		clock = contracts.SystemClock{}
	}
	return &Service{
		repo:     repo,
		contests: contests,
		rules:    rules,
		clock:    clock,
		metrics:  m,
		log:      log.With().Str("component", "prediction.service").Logger(),
	}
}

// Submit validates sub against the contest window, the supported charts and
// the per-user cap, then records it. Rejections are *contracts.ValidationError.
func (s *Service) Submit(ctx context.Context, sub contracts.Submission) (*contracts.Prediction, error) {
	p, err := s.submit(ctx, sub)
	if err != nil {
		if errors.Is(err, contracts.ErrValidation) {
			s.metrics.ObserveSubmission("rejected")
			s.log.Debug().Err(err).Int64("user_id", sub.UserID).Msg("prediction rejected")
		} else {
			s.metrics.ObserveSubmission("error")
		}
		return nil, err
	}
	s.metrics.ObserveSubmission("accepted")
	s.log.Info().
		Int64("prediction_id", p.ID).
		Int64("user_id", p.UserID).
		Int64("contest_id", p.ContestID).
		Str("type", string(p.Type)).
		Msg("prediction recorded")
	return p, nil
}

func (s *Service) submit(ctx context.Context, sub contracts.Submission) (*contracts.Prediction, error) {
	if sub.UserID <= 0 {
		return nil, contracts.NewValidationError("user_id", "required")
	}

	p, err := s.normalize(sub)
	if err != nil {
		return nil, err
	}

	contest, err := s.contests.Get(ctx, sub.ContestID)
	if errors.Is(err, contracts.ErrContestNotFound) {
		return nil, contracts.NewValidationError("contest_id", "unknown contest")
	}
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().In(s.rules.Location())
	if !contest.AcceptsOn(now) {
		return nil, contracts.NewValidationError("contest_id", "contest is not accepting predictions")
	}
	p.ChartDate = contest.ChartReleaseDate

	limit := s.rules.Contest.MaxPredictionsPerUser
	count, err := s.repo.CountForUser(ctx, sub.UserID, sub.ContestID)
	if err != nil {
		return nil, err
	}
	if count >= limit {
		return nil, contracts.NewValidationError("user_id", fmt.Sprintf("limit of %d predictions per contest reached", limit))
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// normalize checks the contest-independent fields and builds the prediction
func (s *Service) normalize(sub contracts.Submission) (*contracts.Prediction, error) {
	if !sub.Type.Valid() {
		return nil, contracts.NewValidationError("prediction_type", fmt.Sprintf("unsupported type %q", sub.Type))
	}

	chart, ok := s.rules.Chart(sub.ChartID)
	if !ok {
		return nil, contracts.NewValidationError("chart_id", fmt.Sprintf("unsupported chart %q (supported: %s)", sub.ChartID, strings.Join(s.rules.ChartIDs(), ", ")))
	}

	song := strings.TrimSpace(sub.SongName)
	artist := strings.TrimSpace(sub.ArtistName)
	if song == "" {
		return nil, contracts.NewValidationError("song_name", "required")
	}
	if artist == "" {
		return nil, contracts.NewValidationError("artist_name", "required")
	}

	p := &contracts.Prediction{
		UserID:     sub.UserID,
		ContestID:  sub.ContestID,
		ChartID:    chart.ID,
		Type:       sub.Type,
		SongName:   song,
		ArtistName: artist,
	}

	switch sub.Type {
	case contracts.PredictionEntry:
		if sub.Value == nil {
			return nil, contracts.NewValidationError("value", "predicted position is required for entry")
		}
		if *sub.Value < 1 || *sub.Value > chart.Size {
			return nil, contracts.NewValidationError("value", fmt.Sprintf("position must be between 1 and %d", chart.Size))
		}
		v := *sub.Value
		p.PredictedPosition = &v
	case contracts.PredictionPositionChange:
		if sub.Value == nil {
			return nil, contracts.NewValidationError("value", "predicted change is required for position_change")
		}
		maxChange := chart.Size - 1
		if *sub.Value < -maxChange || *sub.Value > maxChange {
			return nil, contracts.NewValidationError("value", fmt.Sprintf("change must be between -%d and %d", maxChange, maxChange))
		}
		v := *sub.Value
		p.PredictedChange = &v
	case contracts.PredictionExit:
		if sub.Value != nil {
			return nil, contracts.NewValidationError("value", "exit predictions take no value")
		}
	}
	return p, nil
}

// ListForUser returns a user's predictions with their results
func (s *Service) ListForUser(ctx context.Context, userID int64, f contracts.PredictionFilter) ([]contracts.PredictionWithResult, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, contracts.NewValidationError("type", fmt.Sprintf("unsupported type %q", f.Type))
	}
	return s.repo.ListForUser(ctx, userID, f)
}
