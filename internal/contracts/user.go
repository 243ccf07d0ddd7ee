package contracts

import "time"

// UserStats scoring fields carried on the users row
type UserStats struct {
	UserID             int64      `json:"id"`
	Username           string     `json:"username"`
	TotalPoints        int        `json:"total_points"`
	WeeklyPoints       int        `json:"weekly_points"`
	PredictionsMade    int        `json:"predictions_made"`
	CorrectPredictions int        `json:"correct_predictions"`
	LastLogin          *time.Time `json:"last_login,omitempty"`
}

// UserDelta accumulated change for one user over a batch
type UserDelta struct {
	UserID  int64
	Points  int
	Count   int
	Correct int
}

// LeaderboardEntry one ranked row
type LeaderboardEntry struct {
	Rank               int    `json:"rank"`
	UserID             int64  `json:"user_id"`
	Username           string `json:"username"`
	Points             int    `json:"points"`
	PredictionsMade    int    `json:"predictions_made"`
	CorrectPredictions int    `json:"correct_predictions"`
}

// LeaderboardScope selects a contest leaderboard or the all-time board.
// ContestID 0 means all-time.
type LeaderboardScope struct {
	ContestID int64
}

// AllTime is the all-time leaderboard scope
var AllTime = LeaderboardScope{}

// IsAllTime reports whether the scope is all-time
func (s LeaderboardScope) IsAllTime() bool {
	return s.ContestID == 0
}
