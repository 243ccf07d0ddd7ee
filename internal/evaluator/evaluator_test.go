package evaluator

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/waveger/backend/internal/contracts"
)

func snapshot(date string, entries ...contracts.ChartEntry) *contracts.Snapshot {
	d, _ := time.Parse("2006-01-02", date)
	return &contracts.Snapshot{ChartID: "hot-100", Date: d, Entries: entries}
}

func entry(pos int, name, artist string) contracts.ChartEntry {
	return contracts.ChartEntry{Position: pos, Name: name, Artist: artist, PeakPosition: pos, WeeksOnChart: 1}
}

func ptr(v int) *int { return &v }

// evaluate indexes both snapshots and scores p through the Evaluator
func evaluate(p contracts.Prediction, current, previous *contracts.Snapshot) (contracts.Outcome, error) {
	var e contracts.Evaluator = New()
	return e.Evaluate(p, current.PositionIndex(), previous.PositionIndex())
}

func prediction(t contracts.PredictionType, song, artist string) contracts.Prediction {
	return contracts.Prediction{ID: 1, UserID: 1, ContestID: 1, ChartID: "hot-100", Type: t, SongName: song, ArtistName: artist}
}

func TestEntry_Boundaries(t *testing.T) {
	tests := []struct {
		position int
		points   int
	}{
		{1, 15},
		{10, 15},
		{11, 10},
		{50, 10},
		{51, 5},
		{100, 5},
	}

	previous := snapshot("2025-03-04", entry(1, "Other", "Someone"))
	for _, tt := range tests {
		current := snapshot("2025-03-11", entry(tt.position, "Song X", "Artist Y"))
		p := prediction(contracts.PredictionEntry, "Song X", "Artist Y")
		p.PredictedPosition = ptr(5)

		got, err := evaluate(p, current, previous)
		require.NoError(t, err)
		assert.True(t, got.IsCorrect, "position %d", tt.position)
		assert.Equal(t, tt.points, got.Points, "position %d", tt.position)
		require.NotNil(t, got.ActualPosition)
		assert.Equal(t, tt.position, *got.ActualPosition)
	}
}

func TestEntry_Scenario(t *testing.T) {
	// Contest ends 2025-03-10, release 2025-03-11; Song X new at #8.
	previous := snapshot("2025-03-04", entry(1, "Old Hit", "Band"))
	current := snapshot("2025-03-11", entry(1, "Old Hit", "Band"), entry(8, "Song X", "Artist Y"))

	p := prediction(contracts.PredictionEntry, "Song X", "Artist Y")
	p.PredictedPosition = ptr(5)

	got, err := evaluate(p, current, previous)
	require.NoError(t, err)
	want := contracts.Outcome{IsCorrect: true, Points: 10, ActualPosition: ptr(8)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
}

func TestEntry_Incorrect(t *testing.T) {
	p := prediction(contracts.PredictionEntry, "Song X", "Artist Y")

	tests := []struct {
		name     string
		current  *contracts.Snapshot
		previous *contracts.Snapshot
	}{
		{"absent from current", snapshot("2025-03-11"), snapshot("2025-03-04")},
		{"already in previous", snapshot("2025-03-11", entry(3, "Song X", "Artist Y")), snapshot("2025-03-04", entry(9, "Song X", "Artist Y"))},
		{"artist differs", snapshot("2025-03-11", entry(3, "Song X", "Artist Z")), snapshot("2025-03-04")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluate(p, tt.current, tt.previous)
			require.NoError(t, err)
			assert.Equal(t, contracts.Outcome{}, got)
		})
	}
}

func TestMatching_CaseAndWhitespace(t *testing.T) {
	previous := snapshot("2025-03-04")
	current := snapshot("2025-03-11", entry(42, "SONG X", "artist y"))

	p := prediction(contracts.PredictionEntry, "  Song X ", "Artist Y")
	got, err := evaluate(p, current, previous)
	require.NoError(t, err)
	assert.True(t, got.IsCorrect)
	assert.Equal(t, 10, got.Points)

	// Punctuation drift is not normalized.
	p = prediction(contracts.PredictionEntry, "Song X!", "Artist Y")
	got, err = evaluate(p, current, previous)
	require.NoError(t, err)
	assert.False(t, got.IsCorrect)
}

func TestPositionChange_Scenario(t *testing.T) {
	previous := snapshot("2025-03-04", entry(20, "Song", "Artist"))
	current := snapshot("2025-03-11", entry(15, "Song", "Artist"))

	p := prediction(contracts.PredictionPositionChange, "Song", "Artist")
	p.PredictedChange = ptr(10)

	got, err := evaluate(p, current, previous)
	require.NoError(t, err)
	want := contracts.Outcome{IsCorrect: true, Points: 5, ActualChange: ptr(5)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("outcome mismatch (-want +got):\n%s", diff)
	}
}

func TestPositionChange_StepFunction(t *testing.T) {
	tests := []struct {
		diff   int
		points int
	}{
		{0, 10},
		{1, 5},
		{-5, 5},
		{5, 5},
		{6, 2},
		{-10, 2},
		{10, 2},
		{11, 0},
		{-99, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.points, ChangePoints(tt.diff), "diff %d", tt.diff)
	}

	last := ChangePoints(0)
	for d := 1; d <= 30; d++ {
		cur := ChangePoints(d)
		assert.LessOrEqual(t, cur, last, "non-increasing at %d", d)
		last = cur
	}
}

func TestPositionChange_Down(t *testing.T) {
	previous := snapshot("2025-03-04", entry(5, "Song", "Artist"))
	current := snapshot("2025-03-11", entry(12, "Song", "Artist"))

	p := prediction(contracts.PredictionPositionChange, "Song", "Artist")
	p.PredictedChange = ptr(-7)

	got, err := Evaluate(p, current.PositionIndex(), previous.PositionIndex())
	require.NoError(t, err)
	assert.True(t, got.IsCorrect)
	assert.Equal(t, 10, got.Points)
	assert.Equal(t, -7, *got.ActualChange)
}

func TestPositionChange_Missing(t *testing.T) {
	p := prediction(contracts.PredictionPositionChange, "Song", "Artist")
	p.PredictedChange = ptr(0)

	onlyCurrent, err := evaluate(p, snapshot("2025-03-11", entry(3, "Song", "Artist")), snapshot("2025-03-04"))
	require.NoError(t, err)
	assert.Equal(t, contracts.Outcome{}, onlyCurrent)

	onlyPrevious, err := evaluate(p, snapshot("2025-03-11"), snapshot("2025-03-04", entry(3, "Song", "Artist")))
	require.NoError(t, err)
	assert.Nil(t, onlyPrevious.ActualChange)
	assert.False(t, onlyPrevious.IsCorrect)
}

func TestPositionChange_WithoutValue(t *testing.T) {
	p := prediction(contracts.PredictionPositionChange, "Song", "Artist")
	_, err := evaluate(p, snapshot("2025-03-11"), snapshot("2025-03-04"))
	assert.Error(t, err)
}

func TestExit(t *testing.T) {
	p := prediction(contracts.PredictionExit, "Song", "Artist")

	tests := []struct {
		name     string
		current  *contracts.Snapshot
		previous *contracts.Snapshot
		correct  bool
	}{
		{"dropped out", snapshot("2025-03-11"), snapshot("2025-03-04", entry(99, "Song", "Artist")), true},
		{"still charting", snapshot("2025-03-11", entry(80, "Song", "Artist")), snapshot("2025-03-04", entry(99, "Song", "Artist")), false},
		{"never charted", snapshot("2025-03-11"), snapshot("2025-03-04"), false},
		{"new entry", snapshot("2025-03-11", entry(50, "Song", "Artist")), snapshot("2025-03-04"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluate(p, tt.current, tt.previous)
			require.NoError(t, err)
			assert.Equal(t, tt.correct, got.IsCorrect)
			if tt.correct {
				assert.Equal(t, ExitCorrectPoints, got.Points)
			} else {
				assert.Zero(t, got.Points)
			}
			assert.Nil(t, got.ActualPosition)
			assert.Nil(t, got.ActualChange)
		})
	}
}

func TestUnknownType(t *testing.T) {
	p := prediction("re_entry", "Song", "Artist")
	_, err := evaluate(p, snapshot("2025-03-11"), snapshot("2025-03-04"))
	assert.True(t, errors.Is(err, contracts.ErrUnknownPrediction))
}
