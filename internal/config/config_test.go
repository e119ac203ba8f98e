package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"shiori/internal/config"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Matching.FuzzyThreshold != 0.85 {
		t.Fatalf("unexpected fuzzy threshold: %v", cfg.Matching.FuzzyThreshold)
	}
	if cfg.Scrobble.AutoComplete != "score" {
		t.Fatalf("unexpected auto_complete policy: %q", cfg.Scrobble.AutoComplete)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Players.PollInterval != 5 {
		t.Fatalf("unexpected poll interval: %d", cfg.Players.PollInterval)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[players]
process_names = ["  mpv  ", ""]
video_extensions = ["MKV", ".mp4"]

[matching]
fuzzy_threshold = 0.9
margin = 0.1

[scrobble]
auto_complete = "Always"

[remote]
base_url = "https://example.test/api/"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if len(cfg.Players.ProcessNames) != 1 || cfg.Players.ProcessNames[0] != "mpv" {
		t.Fatalf("unexpected process names: %v", cfg.Players.ProcessNames)
	}
	if cfg.Players.VideoExtensions[0] != ".mkv" {
		t.Fatalf("expected extension normalization, got %v", cfg.Players.VideoExtensions)
	}
	if cfg.Scrobble.AutoComplete != "always" {
		t.Fatalf("expected lowered policy, got %q", cfg.Scrobble.AutoComplete)
	}
	if cfg.Remote.BaseURL != "https://example.test/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Remote.BaseURL)
	}
}

func TestValidateRejectsBadPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Scrobble.AutoComplete = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for bad auto_complete policy")
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.Matching.FuzzyThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for out-of-range threshold")
	}
}
