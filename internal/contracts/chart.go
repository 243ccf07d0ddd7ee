package contracts

import (
	"strings"
	"time"
)

// ChartEntry one ranked row of a snapshot
type ChartEntry struct {
	Position         int    `json:"position"`
	Name             string `json:"name"`
	Artist           string `json:"artist"`
	PeakPosition     int    `json:"peak_position"`
	WeeksOnChart     int    `json:"weeks_on_chart"`
	LastWeekPosition *int   `json:"last_week_position"`
}

// Snapshot the ordered chart for one chart id on one date
type Snapshot struct {
	ChartID string       `json:"chart_id"`
	Date    time.Time    `json:"date"`
	Entries []ChartEntry `json:"entries"`
}

// EntryKey normalizes a (name, artist) pair for matching: trimmed and
// lower-cased, nothing else.
func EntryKey(name, artist string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "\x00" + strings.ToLower(strings.TrimSpace(artist))
}

// PositionIndex maps EntryKey -> chart position
type PositionIndex map[string]int

// PositionIndex indexes the snapshot by EntryKey. On a duplicate key the
// best (lowest) position wins.
func (s *Snapshot) PositionIndex() PositionIndex {
	if s == nil {
		return PositionIndex{}
	}
	idx := make(PositionIndex, len(s.Entries))
	for _, e := range s.Entries {
		k := EntryKey(e.Name, e.Artist)
		if p, ok := idx[k]; ok && p <= e.Position {
			continue
		}
		idx[k] = e.Position
	}
	return idx
}
