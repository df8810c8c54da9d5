package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.PollIntervalSec != 10 {
		t.Errorf("poll interval = %d, want default 10", cfg.Server.PollIntervalSec)
	}
	if cfg.Server.BaseURL == "" {
		t.Error("no default base URL")
	}
}

func TestLoadConfigReadsFileAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  base_url: https://api.evcharge.example.com\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.BaseURL != "https://api.evcharge.example.com" {
		t.Errorf("base URL = %q", cfg.Server.BaseURL)
	}
	// Keys absent from the file still resolve to defaults.
	if cfg.Server.PollIntervalSec != 10 {
		t.Errorf("poll interval = %d, want default 10", cfg.Server.PollIntervalSec)
	}
}

func TestLoadConfigClampsPollInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  poll_interval_sec: -5\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.PollIntervalSec != 10 {
		t.Errorf("poll interval = %d, want clamped 10", cfg.Server.PollIntervalSec)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	want := defaultAppConfig()
	want.Server.BaseURL = "https://api.evcharge.example.com"
	want.Server.PollIntervalSec = 30

	if err := SaveConfig(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Server.BaseURL != want.Server.BaseURL {
		t.Errorf("base URL = %q, want %q", got.Server.BaseURL, want.Server.BaseURL)
	}
	if got.Server.PollIntervalSec != 30 {
		t.Errorf("poll interval = %d, want 30", got.Server.PollIntervalSec)
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		if !c.Valid() {
			t.Errorf("listed category %q reported invalid", c)
		}
	}
	for _, c := range []Category{"", "advertising", "Booking", "ISSUE"} {
		if c.Valid() {
			t.Errorf("category %q reported valid", c)
		}
	}
}
