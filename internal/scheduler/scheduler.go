package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/waveger/backend/pkg/logger"
	"github.com/wonny/waveger/backend/pkg/metrics"
)

// Job run statuses, used as metric labels
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ErrJobRunning the job is already executing
var ErrJobRunning = errors.New("job already running")

// Options tunes retries and per-attempt timeouts
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	// Timeout bounds one attempt; 0 means no limit
	Timeout time.Duration
}

// DefaultOptions three retries one minute apart, 30 minutes per attempt
func DefaultOptions() Options {
	return Options{
		MaxRetries: 3,
		RetryDelay: time.Minute,
		Timeout:    30 * time.Minute,
	}
}

type entry struct {
	job     Job
	id      cron.EntryID
	running bool
}

// Scheduler runs jobs on cron schedules with retries and keeps their history
// ⭐ SSOT: jobs are only scheduled here
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	metrics *metrics.Metrics
	opts    Options

	mu      sync.RWMutex
	jobs    map[string]*entry
	history map[string]*JobHistory

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. m may be nil.
func New(log *logger.Logger, m *metrics.Metrics, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		logger:  log,
		metrics: m,
		opts:    opts,
		jobs:    make(map[string]*entry),
		history: make(map[string]*JobHistory),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddJob registers a job on its schedule
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobName := job.Name()
	if _, exists := s.jobs[jobName]; exists {
		return fmt.Errorf("job %s already exists", jobName)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() {
		_ = s.run(s.ctx, jobName)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", jobName, err)
	}

	s.jobs[jobName] = &entry{job: job, id: id}
	s.history[jobName] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      jobName,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")

	return nil
}

// RemoveJob unschedules a job. Its history is kept.
func (s *Scheduler) RemoveJob(jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.jobs[jobName]
	if !exists {
		return fmt.Errorf("job %s not found", jobName)
	}

	s.cron.Remove(e.id)
	delete(s.jobs, jobName)
	s.logger.WithField("job", jobName).Info("Job removed from scheduler")

	return nil
}

// Start starts the cron loop
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop stops scheduling, cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// RunJob starts a job immediately in the background
func (s *Scheduler) RunJob(jobName string) error {
	s.mu.RLock()
	_, exists := s.jobs[jobName]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job %s not found", jobName)
	}

	go func() {
		_ = s.run(s.ctx, jobName)
	}()
	return nil
}

// RunJobSync runs a job now and waits for it, retries included
func (s *Scheduler) RunJobSync(ctx context.Context, jobName string) (JobResult, error) {
	if err := s.run(ctx, jobName); err != nil {
		var result JobResult
		if h, herr := s.GetJobHistory(jobName); herr == nil && len(h.Results) > 0 && !errors.Is(err, ErrJobRunning) {
			result = h.Results[len(h.Results)-1]
		}
		return result, err
	}
	h, err := s.GetJobHistory(jobName)
	if err != nil {
		return JobResult{}, err
	}
	return h.Results[len(h.Results)-1], nil
}

// run executes a job with retries. Overlapping runs of one job are skipped.
func (s *Scheduler) run(ctx context.Context, jobName string) error {
	s.mu.Lock()
	e, exists := s.jobs[jobName]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("job %s not found", jobName)
	}
	if e.running {
		s.mu.Unlock()
		s.metrics.ObserveJob(jobName, StatusSkipped)
		s.logger.WithField("job", jobName).Warn("Job still running, skipping")
		return fmt.Errorf("%s: %w", jobName, ErrJobRunning)
	}
	e.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		e.running = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	result := s.attempt(ctx, e.job)

	s.mu.Lock()
	if history, ok := s.history[jobName]; ok {
		history.AddResult(result)
	}
	s.mu.Unlock()

	if result.Success {
		s.metrics.ObserveJob(jobName, StatusSuccess)
		s.logger.WithFields(map[string]interface{}{
			"job":      jobName,
			"duration": result.Duration.String(),
			"attempts": result.Attempts,
		}).Info("Job completed successfully")
		return nil
	}

	s.metrics.ObserveJob(jobName, StatusFailed)
	s.logger.WithFields(map[string]interface{}{
		"job":      jobName,
		"duration": result.Duration.String(),
		"attempts": result.Attempts,
		"error":    result.Error,
	}).Error("Job failed after all retries")
	return fmt.Errorf("job %s: %s", jobName, result.Error)
}

func (s *Scheduler) attempt(ctx context.Context, job Job) JobResult {
	jobName := job.Name()
	result := JobResult{JobName: jobName, StartTime: time.Now()}

	s.logger.WithField("job", jobName).Info("Job started")

	var lastErr error
retry:
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		lastErr = s.once(ctx, job)
		if lastErr == nil {
			result.Success = true
			break
		}

		s.logger.WithFields(map[string]interface{}{
			"job":     jobName,
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		}).Warn("Job execution failed, retrying")

		if attempt == s.opts.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			break retry
		case <-time.After(s.opts.RetryDelay):
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	if !result.Success && lastErr != nil {
		result.Error = lastErr.Error()
	}
	return result
}

func (s *Scheduler) once(ctx context.Context, job Job) error {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	return job.Run(ctx)
}

// GetJobHistory returns the history of one job
func (s *Scheduler) GetJobHistory(jobName string) (*JobHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.history[jobName]
	if !exists {
		return nil, fmt.Errorf("job %s not found", jobName)
	}
	cp := &JobHistory{Results: history.GetLatestResults(len(history.Results))}
	return cp, nil
}

// GetAllJobs returns the registered job names, sorted
func (s *Scheduler) GetAllJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]string, 0, len(s.jobs))
	for jobName := range s.jobs {
		jobs = append(jobs, jobName)
	}
	sort.Strings(jobs)
	return jobs
}

// NextRun returns when a job fires next
func (s *Scheduler) NextRun(jobName string) (time.Time, bool) {
	s.mu.RLock()
	e, exists := s.jobs[jobName]
	s.mu.RUnlock()
	if !exists {
		return time.Time{}, false
	}
	next := s.cron.Entry(e.id).Next
	return next, !next.IsZero()
}

// GetJobStats returns statistics for every registered job
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats)
	for jobName, e := range s.jobs {
		history := s.history[jobName]
		latest := history.GetLatestResults(1)
		failed := history.GetFailedResults()

		st := JobStats{
			JobName:      jobName,
			Schedule:     e.job.Schedule(),
			Running:      e.running,
			TotalRuns:    len(history.Results),
			SuccessCount: len(history.Results) - len(failed),
			FailureCount: len(failed),
			SuccessRate:  history.GetSuccessRate(),
		}
		if len(latest) > 0 {
			last := latest[0]
			st.LastRun = &last.StartTime
			if last.Success {
				st.LastSuccess = &last.StartTime
			} else {
				st.LastFailure = &last.StartTime
			}
		}
		stats[jobName] = st
	}
	return stats
}

// JobStats summary of one job's history
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	Running      bool       `json:"running"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}
