package chart

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/waveger/backend/internal/contracts"
)

// Payload is the raw upstream document persisted in the charts table.
// Both providers produce this shape.
type Payload struct {
	Data PayloadData `json:"data"`
}

// PayloadData wraps the song list
type PayloadData struct {
	Date  string `json:"date,omitempty"`
	Songs []Song `json:"songs"`
}

// Song one raw chart row
type Song struct {
	Name             string `json:"name"`
	Artist           string `json:"artist"`
	Position         int    `json:"position"`
	PeakPosition     int    `json:"peak_position,omitempty"`
	WeeksOnChart     int    `json:"weeks_on_chart,omitempty"`
	LastWeekPosition *int   `json:"last_week_position"`
}

// Decode parses a raw payload into a Snapshot ordered by position.
// A payload without songs (quota or error bodies answered with 200) is
// rejected with contracts.ErrEmptyChart.
func Decode(chartID string, date time.Time, raw []byte) (*contracts.Snapshot, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", chartID, err)
	}
	if len(p.Data.Songs) == 0 {
		return nil, fmt.Errorf("decode %s payload: %w", chartID, contracts.ErrEmptyChart)
	}

	entries := make([]contracts.ChartEntry, 0, len(p.Data.Songs))
	for i, s := range p.Data.Songs {
		if s.Position <= 0 || strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("decode %s payload: song %d has no position or name", chartID, i)
		}
		entries = append(entries, contracts.ChartEntry{
			Position:         s.Position,
			Name:             s.Name,
			Artist:           s.Artist,
			PeakPosition:     s.PeakPosition,
			WeeksOnChart:     s.WeeksOnChart,
			LastWeekPosition: s.LastWeekPosition,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Position < entries[j].Position
	})

	return &contracts.Snapshot{
		ChartID: chartID,
		Date:    contracts.DateOnly(date),
		Entries: entries,
	}, nil
}

// Encode renders songs as a raw payload
func Encode(date time.Time, songs []Song) ([]byte, error) {
	return json.Marshal(Payload{Data: PayloadData{
		Date:  date.Format("2006-01-02"),
		Songs: songs,
	}})
}

// AlignToRelease returns the most recent release weekday on or before date
func AlignToRelease(date time.Time, release time.Weekday) time.Time {
	d := contracts.DateOnly(date)
	back := (int(d.Weekday()) - int(release) + 7) % 7
	return d.AddDate(0, 0, -back)
}
