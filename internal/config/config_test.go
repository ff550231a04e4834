package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"system_name": "garage-pi",
		"temp_threshold_c": 75,
		"check_interval": "10m",
		"reboot_policy": "dry-run"
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SystemName != "garage-pi" {
		t.Errorf("system_name = %q", cfg.SystemName)
	}
	if cfg.TempThresholdC != 75 {
		t.Errorf("temp_threshold_c = %v", cfg.TempThresholdC)
	}
	if d, err := cfg.CheckEvery(); err != nil || d != 10*time.Minute {
		t.Errorf("CheckEvery = %v, %v", d, err)
	}
	// Untouched fields keep defaults.
	if cfg.NightlyRebootAt != "02:00" {
		t.Errorf("nightly_reboot_at = %q, want default 02:00", cfg.NightlyRebootAt)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaultsAndError(t *testing.T) {
	cfg, err := Load("/nonexistent/config.json")
	if err == nil {
		t.Error("Load of missing file returned nil error")
	}
	if cfg.TempThresholdC != 80 {
		t.Errorf("missing file should still yield defaults, threshold = %v", cfg.TempThresholdC)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threshold", func(c *Config) { c.TempThresholdC = 0 }},
		{"empty process", func(c *Config) { c.MonitorProcess = "" }},
		{"unknown policy", func(c *Config) { c.RebootPolicy = "maybe" }},
		{"bad interval", func(c *Config) { c.CheckInterval = "five minutes" }},
		{"negative interval", func(c *Config) { c.CheckInterval = "-5m" }},
		{"bad clock", func(c *Config) { c.NightlyRebootAt = "2am" }},
		{"hour out of range", func(c *Config) { c.NightlyRebootAt = "25:00" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("02:00")
	if err != nil || h != 2 || m != 0 {
		t.Errorf("ParseClock(02:00) = %d, %d, %v", h, m, err)
	}
	h, m, err = ParseClock("23:59")
	if err != nil || h != 23 || m != 59 {
		t.Errorf("ParseClock(23:59) = %d, %d, %v", h, m, err)
	}
	if _, _, err := ParseClock(""); err == nil {
		t.Error("ParseClock(\"\") returned nil error")
	}
}
