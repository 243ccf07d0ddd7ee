package contracts

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestContest_AcceptsOn(t *testing.T) {
	c := &Contest{
		Status:           ContestOpen,
		StartDate:        day("2025-03-04"),
		EndDate:          day("2025-03-10"),
		ChartReleaseDate: day("2025-03-11"),
	}

	assert.True(t, c.AcceptsOn(day("2025-03-04")))
	assert.True(t, c.AcceptsOn(day("2025-03-10").Add(23*time.Hour)))
	assert.False(t, c.AcceptsOn(day("2025-03-03")))
	assert.False(t, c.AcceptsOn(day("2025-03-11")))

	c.Status = ContestClosed
	assert.False(t, c.AcceptsOn(day("2025-03-05")))

	var nilContest *Contest
	assert.False(t, nilContest.AcceptsOn(day("2025-03-05")))
}

func TestPredictionType_Valid(t *testing.T) {
	for _, pt := range PredictionTypes {
		assert.True(t, pt.Valid(), pt)
	}
	assert.False(t, PredictionType("re_entry").Valid())
	assert.False(t, PredictionType("").Valid())
}

func TestEntryKey(t *testing.T) {
	assert.Equal(t, EntryKey("Song X", "Artist Y"), EntryKey("  song x ", "ARTIST Y"))
	assert.NotEqual(t, EntryKey("Song X", "Artist Y"), EntryKey("Song X!", "Artist Y"))
	assert.NotEqual(t, EntryKey("ab", "c"), EntryKey("a", "bc"))
}

func TestSnapshot_PositionIndex(t *testing.T) {
	s := &Snapshot{Entries: []ChartEntry{
		{Position: 1, Name: "A", Artist: "X"},
		{Position: 2, Name: "B", Artist: "Y"},
		{Position: 7, Name: "a", Artist: "x"},
	}}

	idx := s.PositionIndex()
	assert.Len(t, idx, 2)
	assert.Equal(t, 1, idx[EntryKey("A", "X")])
	assert.Equal(t, 2, idx[EntryKey("b", "y")])

	var empty *Snapshot
	assert.Empty(t, empty.PositionIndex())
}

func TestErrorTaxonomy(t *testing.T) {
	verr := fmt.Errorf("submit: %w", NewValidationError("prediction_type", "unsupported"))
	assert.True(t, errors.Is(verr, ErrValidation))
	var ve *ValidationError
	require.True(t, errors.As(verr, &ve))
	assert.Equal(t, "prediction_type", ve.Field)
	assert.Equal(t, "prediction_type: unsupported", ve.Error())

	cause := errors.New("503")
	serr := &SourceError{ChartID: "hot-100", Date: day("2025-03-11"), Err: cause}
	assert.True(t, errors.Is(serr, ErrSourceUnavailable))
	assert.True(t, errors.Is(serr, cause))
	assert.Contains(t, serr.Error(), "hot-100@2025-03-11")

	perr := Persistence("insert result", cause)
	assert.True(t, errors.Is(perr, ErrPersistence))
	assert.True(t, errors.Is(perr, cause))
	assert.Nil(t, Persistence("noop", nil))

	assert.True(t, errors.Is(ErrOpenContestExists, ErrPersistence))
	assert.False(t, errors.Is(ErrNoOpenContest, ErrPersistence))
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	got := DateOnly(time.Date(2025, 3, 11, 23, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), got)
}
