package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/logger"
)

// DefaultContestGuardSchedule daily at 00:05
const DefaultContestGuardSchedule = "0 5 0 * * *"

// ContestOpener opens a contest when none is open
type ContestOpener interface {
	EnsureOpen(ctx context.Context) (*contracts.Contest, bool, error)
}

// ContestGuardJob keeps a contest open between weekly cycles,
// e.g. on a fresh database or after a failed cycle
type ContestGuardJob struct {
	contests ContestOpener
	schedule string
	logger   *logger.Logger
}

// NewContestGuardJob creates the guard job. An empty schedule uses the default.
func NewContestGuardJob(contests ContestOpener, schedule string, log *logger.Logger) *ContestGuardJob {
	if schedule == "" {
		schedule = DefaultContestGuardSchedule
	}
	return &ContestGuardJob{contests: contests, schedule: schedule, logger: log}
}

// Name returns the job name
func (j *ContestGuardJob) Name() string {
	return "contest_guard"
}

// Schedule returns the cron schedule
func (j *ContestGuardJob) Schedule() string {
	return j.schedule
}

// Run opens a contest if none is open
func (j *ContestGuardJob) Run(ctx context.Context) error {
	c, created, err := j.contests.EnsureOpen(ctx)
	if err != nil {
		return fmt.Errorf("ensure open contest: %w", err)
	}
	if created {
		j.logger.WithField("contest_id", c.ID).Info("Contest guard opened a contest")
		return nil
	}
	j.logger.WithField("contest_id", c.ID).Debug("Contest already open")
	return nil
}
