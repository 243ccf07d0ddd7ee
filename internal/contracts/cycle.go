package contracts

import "time"

// CycleReport summarizes one weekly cycle run
type CycleReport struct {
	RunID           string          `json:"run_id"`
	ClosedContestID *int64          `json:"closed_contest_id,omitempty"`
	Evaluation      *EvalReport     `json:"evaluation,omitempty"`
	Summary         *ContestSummary `json:"summary,omitempty"`
	WeeklyReset     int64           `json:"weekly_reset_users"`
	NextContest     *Contest        `json:"next_contest,omitempty"`
	Duration        time.Duration   `json:"duration"`
}

// EvalReport summarizes one contest evaluation
type EvalReport struct {
	ContestID      int64    `json:"contest_id"`
	Loaded         int      `json:"loaded"`
	Evaluated      int      `json:"evaluated"`
	Correct        int      `json:"correct"`
	PointsAwarded  int      `json:"points_awarded"`
	UsersUpdated   int      `json:"users_updated"`
	Skipped        int      `json:"skipped"`
	DeferredCharts []string `json:"deferred_charts,omitempty"`
	Unreleased     bool     `json:"unreleased,omitempty"` // release date still ahead, nothing scored
}
