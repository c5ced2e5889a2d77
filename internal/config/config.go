// Package config defines process configuration and the challenge rules.
//
// Process settings come from defaults, an optional YAML file and CHALLENGE_
// environment variables. Challenge rules come from a per-year rules file that
// is bootstrapped from a template on first use.
package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"
)

// Window end policies.
const (
	WindowYearEnd    = "year_end"
	WindowLastSunday = "last_sunday"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Year selects the challenge year. Zero means the current year.
	Year int `koanf:"year"`

	// DataDir holds one directory per challenge year.
	DataDir string `koanf:"data_dir"`

	// RulesTemplate is copied into the year directory when no rules exist yet.
	RulesTemplate string `koanf:"rules_template"`

	// WindowEnd is one of WindowYearEnd or WindowLastSunday.
	WindowEnd string `koanf:"window_end"`

	// RedisURL enables the activity page cache when set.
	RedisURL string        `koanf:"redis_url"`
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// BreaksCalendarURL points at an iCalendar feed of excused weeks.
	BreaksCalendarURL string `koanf:"breaks_calendar_url"`

	StravaClientID     string `koanf:"strava_client_id"`
	StravaClientSecret string `koanf:"strava_client_secret"`
	StravaRedirectURI  string `koanf:"strava_redirect_uri"`
	StravaVerifyToken  string `koanf:"strava_verify_token"`
	StateToken         string `koanf:"state_token"`

	// StravaCallbackURL, when set, is registered as the push subscription
	// target after an athlete authorizes.
	StravaCallbackURL string `koanf:"strava_callback_url"`

	// AdminToken guards /total when set.
	AdminToken string `koanf:"admin_token"`

	// Currency and Language drive report formatting.
	Currency string `koanf:"currency"`
	Language string `koanf:"language"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		Addr:          ":8080",
		DataDir:       "data",
		RulesTemplate: "rules_template.yaml",
		WindowEnd:     WindowYearEnd,
		CacheTTL:      time.Hour,
		Currency:      "EUR",
		Language:      "de",
	}
}

// ChallengeYear returns the configured year, or the year of now.
func (c *Config) ChallengeYear(now time.Time) int {
	if c.Year != 0 {
		return c.Year
	}
	return now.Year()
}

// YearDir is the directory holding the ledgers for year.
func (c *Config) YearDir(year int) string {
	return filepath.Join(c.DataDir, strconv.Itoa(year))
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	}
	switch c.WindowEnd {
	case WindowYearEnd, WindowLastSunday:
	default:
		return fmt.Errorf("%w: unknown window_end %q", ErrInvalidConfig, c.WindowEnd)
	}
	return nil
}
