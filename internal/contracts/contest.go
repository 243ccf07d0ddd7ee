package contracts

import "time"

// ContestStatus lifecycle state of a weekly contest
type ContestStatus string

const (
	ContestOpen   ContestStatus = "open"
	ContestClosed ContestStatus = "closed"
)

// Contest is one weekly prediction window tied to a chart release.
// At most one contest is open at a time; open -> closed happens once.
type Contest struct {
	ID                 int64         `json:"id"`
	StartDate          time.Time     `json:"start_date"`
	EndDate            time.Time     `json:"end_date"`
	ChartReleaseDate   time.Time     `json:"chart_release_date"`
	Status             ContestStatus `json:"status"`
	ClosedAt           *time.Time    `json:"closed_at,omitempty"`
	TotalPredictions   int           `json:"total_predictions"`
	CorrectPredictions int           `json:"correct_predictions"`
	TotalPointsAwarded int           `json:"total_points_awarded"`
	Stats              *ContestStats `json:"contest_stats,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}

// IsOpen reports whether the contest still accepts predictions
func (c *Contest) IsOpen() bool {
	return c != nil && c.Status == ContestOpen
}

// AcceptsOn reports whether a submission on day falls inside the window.
// Only the calendar date of day is compared.
func (c *Contest) AcceptsOn(day time.Time) bool {
	if !c.IsOpen() {
		return false
	}
	d := DateOnly(day)
	return !d.Before(DateOnly(c.StartDate)) && !d.After(DateOnly(c.EndDate))
}

// ContestStats is the derived attachment stored on a processed contest
type ContestStats struct {
	TopPerformers   []TopPerformer `json:"top_performers"`
	PredictionStats []TypeStats    `json:"prediction_stats"`
}

// TopPerformer one row of the contest top-10
type TopPerformer struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}

// TypeStats per prediction type breakdown
type TypeStats struct {
	Type        PredictionType `json:"type"`
	Total       int            `json:"total"`
	Correct     int            `json:"correct"`
	SuccessRate float64        `json:"success_rate"` // percent, 2dp
	AvgPoints   float64        `json:"avg_points"`   // 2dp
}

// ContestSummary is the full aggregate written back to a contest
type ContestSummary struct {
	ContestID          int64        `json:"contest_id"`
	TotalPredictions   int          `json:"total_predictions"`
	CorrectPredictions int          `json:"correct_predictions"`
	TotalPoints        int          `json:"total_points_awarded"`
	Stats              ContestStats `json:"contest_stats"`
}

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
