package evaluator

import (
	"fmt"

	"github.com/wonny/waveger/backend/internal/contracts"
)

// Scoring constants. Fixed by the game rules, not configurable.
const (
	EntryTop10Points = 15
	EntryTop50Points = 10
	EntryOtherPoints = 5

	ChangeExactPoints    = 10
	ChangeWithin5Points  = 5
	ChangeWithin10Points = 2
	ExitCorrectPoints    = 10
)

// Evaluator scores predictions. It holds no state.
// ⭐ SSOT: scoring rules live only here
type Evaluator struct{}

// New returns an Evaluator
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate implements contracts.Evaluator
func (Evaluator) Evaluate(p contracts.Prediction, current, previous contracts.PositionIndex) (contracts.Outcome, error) {
	return Evaluate(p, current, previous)
}

// Evaluate scores p against the current and previous chart indexes built
// with Snapshot.PositionIndex
func Evaluate(p contracts.Prediction, current, previous contracts.PositionIndex) (contracts.Outcome, error) {
	key := contracts.EntryKey(p.SongName, p.ArtistName)
	curPos, inCurrent := current[key]
	prevPos, inPrevious := previous[key]

	switch p.Type {
	case contracts.PredictionEntry:
		return scoreEntry(curPos, inCurrent, inPrevious), nil
	case contracts.PredictionPositionChange:
		if p.PredictedChange == nil {
			return contracts.Outcome{}, fmt.Errorf("prediction %d: position_change without predicted_change", p.ID)
		}
		return scoreChange(*p.PredictedChange, curPos, prevPos, inCurrent && inPrevious), nil
	case contracts.PredictionExit:
		return scoreExit(inCurrent, inPrevious), nil
	default:
		return contracts.Outcome{}, fmt.Errorf("prediction %d: %w %q", p.ID, contracts.ErrUnknownPrediction, p.Type)
	}
}

func scoreEntry(position int, inCurrent, inPrevious bool) contracts.Outcome {
	if !inCurrent || inPrevious {
		return contracts.Outcome{}
	}
	return contracts.Outcome{
		IsCorrect:      true,
		Points:         EntryPoints(position),
		ActualPosition: intPtr(position),
	}
}

// EntryPoints returns the reward for a new entry at position
func EntryPoints(position int) int {
	switch {
	case position <= 10:
		return EntryTop10Points
	case position <= 50:
		return EntryTop50Points
	default:
		return EntryOtherPoints
	}
}

func scoreChange(predicted, current, previous int, inBoth bool) contracts.Outcome {
	if !inBoth {
		return contracts.Outcome{}
	}
	actual := previous - current // positive = moved up
	points := ChangePoints(predicted - actual)
	return contracts.Outcome{
		IsCorrect:    points > 0,
		Points:       points,
		ActualChange: intPtr(actual),
	}
}

// ChangePoints returns the reward for a position_change prediction that
// missed the actual change by diff
func ChangePoints(diff int) int {
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return ChangeExactPoints
	case diff <= 5:
		return ChangeWithin5Points
	case diff <= 10:
		return ChangeWithin10Points
	default:
		return 0
	}
}

func scoreExit(inCurrent, inPrevious bool) contracts.Outcome {
	if inPrevious && !inCurrent {
		return contracts.Outcome{IsCorrect: true, Points: ExitCorrectPoints}
	}
	return contracts.Outcome{}
}

func intPtr(v int) *int {
	return &v
}
