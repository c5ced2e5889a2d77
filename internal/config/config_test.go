package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHALLENGE_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.WindowEnd != WindowYearEnd || cfg.CacheTTL != time.Hour {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("addr: \":9090\"\ndata_dir: /srv/challenge\nyear: 2023\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHALLENGE_CONFIG", path)
	t.Setenv("CHALLENGE_DATA_DIR", "/var/lib/challenge")
	t.Setenv("CHALLENGE_CACHE_TTL", "15m")
	t.Setenv("CHALLENGE_WINDOW_END", WindowLastSunday)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("expected addr from file, got %q", cfg.Addr)
	}
	if cfg.DataDir != "/var/lib/challenge" {
		t.Errorf("expected env to override file, got %q", cfg.DataDir)
	}
	if cfg.Year != 2023 {
		t.Errorf("expected year 2023, got %d", cfg.Year)
	}
	if cfg.CacheTTL != 15*time.Minute {
		t.Errorf("expected 15m ttl, got %v", cfg.CacheTTL)
	}
	if cfg.WindowEnd != WindowLastSunday {
		t.Errorf("expected last_sunday, got %q", cfg.WindowEnd)
	}
	if got := cfg.YearDir(cfg.ChallengeYear(time.Now())); got != filepath.Join("/var/lib/challenge", "2023") {
		t.Errorf("unexpected year dir %q", got)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("CHALLENGE_CONFIG", "")
	t.Setenv("CHALLENGE_WINDOW_END", "whenever")
	if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	t.Setenv("CHALLENGE_WINDOW_END", "")
	t.Setenv("CHALLENGE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); !errors.Is(err, ErrLoadConfig) {
		t.Errorf("expected ErrLoadConfig, got %v", err)
	}
}
