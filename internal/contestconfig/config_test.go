package contestconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RepoRules(t *testing.T) {
	path := "../../config/contest/weekly.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("rules file not found")
	}

	cfg, data, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, Default(), cfg)

	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	hash2, _ := Hash(Default())
	assert.Equal(t, hash, hash2, "same rules must hash the same")
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	cfg, data, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, time.Tuesday, cfg.ReleaseWeekday())
	assert.Equal(t, 7*24*time.Hour, cfg.Lookback())
	assert.Equal(t, 5, cfg.Contest.MaxPredictionsPerUser)
	assert.Equal(t, []string{"billboard-200", "hot-100"}, cfg.ChartIDs())
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestParse_UnknownFieldFails(t *testing.T) {
	_, err := Parse([]byte(`
meta:
  rules_id: x
contest:
  release_weekday: tuesday
  lookback_days: 7
  max_predictions_per_user: 5
  max_predictions: 3
charts:
  - {id: hot-100, name: Hot 100, size: 100}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_predictions")
}

func TestParse_Friday(t *testing.T) {
	cfg, err := Parse([]byte(`
meta: {rules_id: uk, timezone: Europe/London}
contest: {release_weekday: Friday, lookback_days: 7, max_predictions_per_user: 3}
charts:
  - {id: uk-singles, name: UK Singles, size: 100}
`))
	require.NoError(t, err)
	assert.Equal(t, time.Friday, cfg.ReleaseWeekday())
	assert.Equal(t, "Europe/London", cfg.Location().String())

	ch, ok := cfg.Chart("uk-singles")
	require.True(t, ok)
	assert.Equal(t, 100, ch.Size)
	_, ok = cfg.Chart("hot-100")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing rules id", func(c *Config) { c.Meta.RulesID = "" }, "meta.rules_id"},
		{"bad timezone", func(c *Config) { c.Meta.Timezone = "Mars/Olympus" }, "meta.timezone"},
		{"bad weekday", func(c *Config) { c.Contest.ReleaseWeekday = "someday" }, "contest.release_weekday"},
		{"zero lookback", func(c *Config) { c.Contest.LookbackDays = 0 }, "contest.lookback_days"},
		{"zero cap", func(c *Config) { c.Contest.MaxPredictionsPerUser = 0 }, "contest.max_predictions_per_user"},
		{"no charts", func(c *Config) { c.Charts = nil }, "charts"},
		{"bad chart id", func(c *Config) { c.Charts[0].ID = "Hot 100" }, "charts[0].id"},
		{"duplicate chart", func(c *Config) { c.Charts[1].ID = c.Charts[0].ID }, "charts[1].id"},
		{"zero size", func(c *Config) { c.Charts[1].Size = 0 }, "charts[1].size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			var verr ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	assert.NoError(t, Validate(Default()))
}

func TestLoad_InvalidFileKeepsBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("meta: {rules_id: x}\n"), 0o600))

	cfg, data, err := Load(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.NotEmpty(t, data)
}
