package contestconfig

import (
	"fmt"
	"regexp"
	"time"
)

// ValidationError rules file is unusable
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var chartIDPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.RulesID == "" {
		return ValidationError{"meta.rules_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Contest ===
	if _, ok := parseWeekday(cfg.Contest.ReleaseWeekday); !ok {
		return ValidationError{"contest.release_weekday", fmt.Sprintf("unknown weekday %q", cfg.Contest.ReleaseWeekday)}
	}
	if cfg.Contest.LookbackDays <= 0 {
		return ValidationError{"contest.lookback_days", "must be > 0"}
	}
	if cfg.Contest.MaxPredictionsPerUser <= 0 {
		return ValidationError{"contest.max_predictions_per_user", "must be > 0"}
	}

	// === Charts ===
	if len(cfg.Charts) == 0 {
		return ValidationError{"charts", "at least one chart is required"}
	}
	seen := make(map[string]bool, len(cfg.Charts))
	for i, ch := range cfg.Charts {
		field := fmt.Sprintf("charts[%d]", i)
		if !chartIDPattern.MatchString(ch.ID) {
			return ValidationError{field + ".id", fmt.Sprintf("invalid chart id %q", ch.ID)}
		}
		if seen[ch.ID] {
			return ValidationError{field + ".id", fmt.Sprintf("duplicate chart id %q", ch.ID)}
		}
		seen[ch.ID] = true
		if ch.Size <= 0 {
			return ValidationError{field + ".size", "must be > 0"}
		}
	}

	return nil
}
