package contestconfig

import (
	"sort"
	"strings"
	"time"
)

// Config holds the contest rules
type Config struct {
	Meta    Meta        `yaml:"meta" json:"meta"`
	Contest ContestRule `yaml:"contest" json:"contest"`
	Charts  []ChartRule `yaml:"charts" json:"charts"`
}

// Meta identifies a rules revision
type Meta struct {
	RulesID  string `yaml:"rules_id" json:"rules_id"`
	Version  string `yaml:"version" json:"version"`
	Timezone string `yaml:"timezone" json:"timezone"` // IANA name, decides "today"
}

// ContestRule window and submission limits
type ContestRule struct {
	ReleaseWeekday        string `yaml:"release_weekday" json:"release_weekday"` // e.g. tuesday
	LookbackDays          int    `yaml:"lookback_days" json:"lookback_days"`     // previous snapshot offset
	MaxPredictionsPerUser int    `yaml:"max_predictions_per_user" json:"max_predictions_per_user"`
}

// ChartRule one chart users may predict on
type ChartRule struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Size int    `yaml:"size" json:"size"` // number of ranked positions
}

// Default returns the built-in rules used when no file is configured
func Default() *Config {
	return &Config{
		Meta: Meta{
			RulesID:  "waveger_weekly",
			Version:  "1",
			Timezone: "UTC",
		},
		Contest: ContestRule{
			ReleaseWeekday:        "tuesday",
			LookbackDays:          7,
			MaxPredictionsPerUser: 5,
		},
		Charts: []ChartRule{
			{ID: "hot-100", Name: "Billboard Hot 100", Size: 100},
			{ID: "billboard-200", Name: "Billboard 200", Size: 200},
		},
	}
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(s string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	return wd, ok
}

// ReleaseWeekday returns the chart publication weekday
func (c *Config) ReleaseWeekday() time.Weekday {
	wd, ok := parseWeekday(c.Contest.ReleaseWeekday)
	if !ok {
		return time.Tuesday
	}
	return wd
}

// Lookback returns the distance between the current and previous snapshot
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Contest.LookbackDays) * 24 * time.Hour
}

// Location returns the rules timezone, UTC if unset or unknown
func (c *Config) Location() *time.Location {
	if c.Meta.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Meta.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Chart looks up a supported chart
func (c *Config) Chart(id string) (ChartRule, bool) {
	for _, ch := range c.Charts {
		if ch.ID == id {
			return ch, true
		}
	}
	return ChartRule{}, false
}

// ChartIDs returns the supported chart ids, sorted
func (c *Config) ChartIDs() []string {
	ids := make([]string, 0, len(c.Charts))
	for _, ch := range c.Charts {
		ids = append(ids, ch.ID)
	}
	sort.Strings(ids)
	return ids
}
