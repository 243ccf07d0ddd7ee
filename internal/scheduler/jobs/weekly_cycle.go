package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/waveger/backend/internal/contracts"
	"github.com/wonny/waveger/backend/pkg/logger"
)

// DefaultWeeklyCycleSchedule Tuesdays at noon, after the charts publish
const DefaultWeeklyCycleSchedule = "0 0 12 * * 2"

// CycleRunner runs one weekly cycle
type CycleRunner interface {
	Run(ctx context.Context) (*contracts.CycleReport, error)
}

// WeeklyCycleJob closes, scores and reopens the weekly contest
type WeeklyCycleJob struct {
	cycle    CycleRunner
	schedule string
	logger   *logger.Logger
}

// NewWeeklyCycleJob creates the weekly cycle job. An empty schedule uses the default.
func NewWeeklyCycleJob(cycle CycleRunner, schedule string, log *logger.Logger) *WeeklyCycleJob {
	if schedule == "" {
		schedule = DefaultWeeklyCycleSchedule
	}
	return &WeeklyCycleJob{cycle: cycle, schedule: schedule, logger: log}
}

// Name returns the job name
func (j *WeeklyCycleJob) Name() string {
	return "weekly_cycle"
}

// Schedule returns the cron schedule
func (j *WeeklyCycleJob) Schedule() string {
	return j.schedule
}

// Run executes one cycle. Re-running after a failure is safe.
func (j *WeeklyCycleJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled weekly cycle")

	report, err := j.cycle.Run(ctx)
	if err != nil {
		return fmt.Errorf("weekly cycle: %w", err)
	}

	fields := map[string]interface{}{
		"run_id":       report.RunID,
		"weekly_reset": report.WeeklyReset,
	}
	if report.Evaluation != nil {
		fields["evaluated"] = report.Evaluation.Evaluated
		fields["points_awarded"] = report.Evaluation.PointsAwarded
		if len(report.Evaluation.DeferredCharts) > 0 {
			fields["deferred_charts"] = report.Evaluation.DeferredCharts
		}
	}
	if report.NextContest != nil {
		fields["next_contest_id"] = report.NextContest.ID
	}
	j.logger.WithFields(fields).Info("Weekly cycle job completed")
	return nil
}
