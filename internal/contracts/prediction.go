package contracts

import "time"

// PredictionType kind of bet on a chart entry
type PredictionType string

const (
	PredictionEntry          PredictionType = "entry"
	PredictionExit           PredictionType = "exit"
	PredictionPositionChange PredictionType = "position_change"
)

// PredictionTypes in reporting order
var PredictionTypes = []PredictionType{
	PredictionEntry,
	PredictionPositionChange,
	PredictionExit,
}

// Valid reports whether t is a known prediction type
func (t PredictionType) Valid() bool {
	switch t {
	case PredictionEntry, PredictionExit, PredictionPositionChange:
		return true
	}
	return false
}

// Prediction a user's bet for one contest. Append-only; Processed flips
// false -> true exactly once.
type Prediction struct {
	ID                int64          `json:"id"`
	UserID            int64          `json:"user_id"`
	ContestID         int64          `json:"contest_id"`
	ChartID           string         `json:"chart_id"`
	ChartDate         time.Time      `json:"chart_date"`
	Type              PredictionType `json:"prediction_type"`
	SongName          string         `json:"song_name"`
	ArtistName        string         `json:"artist_name"`
	PredictedPosition *int           `json:"predicted_position,omitempty"` // entry
	PredictedChange   *int           `json:"predicted_change,omitempty"`   // position_change
	Processed         bool           `json:"processed"`
	CreatedAt         time.Time      `json:"created_at"`
}

// PredictionResult 1:1 with a processed prediction, immutable
type PredictionResult struct {
	ID             int64     `json:"id"`
	PredictionID   int64     `json:"prediction_id"`
	ActualPosition *int      `json:"actual_position"`
	ActualChange   *int      `json:"actual_change"`
	IsCorrect      bool      `json:"is_correct"`
	PointsEarned   int       `json:"points_earned"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// PredictionWithResult joins a prediction with its result, if any
type PredictionWithResult struct {
	Prediction
	Result *PredictionResult `json:"result,omitempty"`
}

// Outcome is the evaluator's verdict for one prediction
type Outcome struct {
	IsCorrect      bool
	Points         int
	ActualPosition *int
	ActualChange   *int
}

// Submission is a request to create a prediction
type Submission struct {
	UserID     int64          `json:"user_id"`
	ContestID  int64          `json:"contest_id"`
	ChartID    string         `json:"chart_id"`
	Type       PredictionType `json:"prediction_type"`
	SongName   string         `json:"song_name"`
	ArtistName string         `json:"artist_name"`
	Value      *int           `json:"value,omitempty"` // position for entry, change for position_change
}

// PredictionFilter narrows a user's prediction listing
type PredictionFilter struct {
	ContestID *int64
	ChartID   string
	Type      PredictionType
	Processed *bool
	Limit     int
}

// ScoredPrediction pairs a prediction with its result for aggregation
type ScoredPrediction struct {
	UserID       int64
	Username     string
	Type         PredictionType
	IsCorrect    bool
	PointsEarned int
}
