package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// RulesFile is the name of the per-year rules file.
const RulesFile = "global_rules.yaml"

// Rules are the challenge constants for one year.
type Rules struct {
	Rules          string `koanf:"RULES"`
	PointsRequired int    `koanf:"POINTS_REQUIRED"`
	// Weeks before FullRulesFromWeek only need EarlyPointsRequired points.
	EarlyPointsRequired int `koanf:"EARLY_POINTS_REQUIRED"`
	FullRulesFromWeek   int `koanf:"FULL_RULES_FROM_WEEK"`
	PricePerWeek        int `koanf:"PRICE_PER_WEEK"`
	Spazi               int `koanf:"SPAZI"`
	WalkingLimit        int `koanf:"WALKING_LIMIT"`
	HitRequired         int `koanf:"HIT_REQUIRED"`
	// HitMinTime is in minutes.
	HitMinTime          int `koanf:"HIT_MIN_TIME"`
	MinDurationMultiDay int `koanf:"MIN_DURATION_MULTI_DAY"`
	ChallengeStartWeek  int `koanf:"CHALLENGE_START_WEEK"`
	Joker               int `koanf:"JOKER"`
}

// PointsRequiredFor returns the weekly threshold for ISO week.
func (r Rules) PointsRequiredFor(week int) int {
	if r.FullRulesFromWeek > 0 && week < r.FullRulesFromWeek {
		return r.EarlyPointsRequired
	}
	return r.PointsRequired
}

// Snapshot is the copy of the rules stored on an athlete at registration.
type Snapshot struct {
	Rules               string `json:"rules"`
	PointsRequired      int    `json:"points_required"`
	PricePerWeek        int    `json:"price_per_week"`
	Spazi               int    `json:"spazi"`
	WalkingLimit        int    `json:"walking_limit"`
	HitRequired         int    `json:"hit_required"`
	HitMinTime          int    `json:"hit_min_time"`
	MinDurationMultiDay int    `json:"min_duration_multi_day"`
	StartWeek           int    `json:"start_week"`
}

func (r Rules) Snapshot() Snapshot {
	return Snapshot{
		Rules:               r.Rules,
		PointsRequired:      r.PointsRequired,
		PricePerWeek:        r.PricePerWeek,
		Spazi:               r.Spazi,
		WalkingLimit:        r.WalkingLimit,
		HitRequired:         r.HitRequired,
		HitMinTime:          r.HitMinTime,
		MinDurationMultiDay: r.MinDurationMultiDay,
		StartWeek:           r.ChallengeStartWeek,
	}
}

// LoadRules reads the rules for the year stored in dir. When the rules file is
// missing or empty it is first copied from template.
func LoadRules(dir, template string) (Rules, error) {
	path := filepath.Join(dir, RulesFile)
	if err := bootstrapRules(path, template); err != nil {
		return Rules{}, fmt.Errorf("%w: %w", ErrLoadRules, err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Rules{}, fmt.Errorf("%w: %s: %w", ErrLoadRules, path, err)
	}

	r := Rules{EarlyPointsRequired: 2, FullRulesFromWeek: 9, ChallengeStartWeek: 1}
	if err := k.UnmarshalWithConf("constants", &r, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Rules{}, fmt.Errorf("%w: %w", ErrLoadRules, err)
	}
	return r, nil
}

func bootstrapRules(path, template string) error {
	fi, err := os.Stat(path)
	if err == nil && fi.Size() > 0 {
		return nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	data, err := os.ReadFile(template)
	if err != nil {
		return fmt.Errorf("reading rules template: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644) //nolint:gosec // rules are not secret
}
