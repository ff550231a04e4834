// Package config holds the agent's runtime configuration, read from an
// optional JSON file with flag overrides applied by the caller.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Reboot policies for the liveness guard and nightly reboot. The original
// checks disagreed on whether to actually reboot or only print the
// command, so the choice is explicit here.
const (
	PolicyExecute = "execute"
	PolicyDryRun  = "dry-run"
)

// Config is the agent's runtime configuration.
type Config struct {
	SystemName string `json:"system_name"`

	// Journals.
	ActivityLog string `json:"activity_log"`
	StartupLog  string `json:"startup_log"`
	HealthLog   string `json:"health_log"`

	// Chat notifications.
	SlackWebhookURL string `json:"slack_webhook_url"`
	SlackChannel    string `json:"slack_channel"`

	// Telemetry push. Disabled when NatsURL is empty.
	NatsURL     string `json:"nats_url"`
	NatsSubject string `json:"nats_subject"`

	// Health checks.
	TempThresholdC  float64 `json:"temp_threshold_c"`
	MonitorProcess  string  `json:"monitor_process"`
	CheckInterval   string  `json:"check_interval"`
	ReportInterval  string  `json:"report_interval"`
	NightlyRebootAt string  `json:"nightly_reboot_at"`
	RebootPolicy    string  `json:"reboot_policy"`

	// Door monitoring. Disabled when DistanceCommand is empty.
	Door DoorConfig `json:"door"`
}

// DoorConfig configures the door monitor.
type DoorConfig struct {
	DistanceCommand  []string `json:"distance_command"`
	OpenThresholdCM  float64  `json:"open_threshold_cm"`
	Samples          int      `json:"samples"`
	SampleDelay      string   `json:"sample_delay"`
	CheckInterval    string   `json:"check_interval"`
	WarnEveryMinutes int      `json:"warn_every_minutes"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ActivityLog:     "/var/log/gdmonitor/gdoor-activity.log",
		StartupLog:      "/var/log/gdmonitor/gdoor-startup.log",
		HealthLog:       "/var/log/gdmonitor/gdoor-health.log",
		SlackChannel:    "",
		NatsSubject:     "gdmonitor.telemetry",
		TempThresholdC:  80,
		MonitorProcess:  "garage-monitor",
		CheckInterval:   "5m",
		ReportInterval:  "1h",
		NightlyRebootAt: "02:00",
		RebootPolicy:    PolicyExecute,
		Door: DoorConfig{
			OpenThresholdCM:  50,
			Samples:          3,
			SampleDelay:      "500ms",
			CheckInterval:    "1m",
			WarnEveryMinutes: 30,
		},
	}
}

// Load reads the JSON file at path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields the guards depend on.
func (c Config) Validate() error {
	if c.TempThresholdC <= 0 {
		return fmt.Errorf("temp_threshold_c must be greater than 0")
	}
	if c.MonitorProcess == "" {
		return fmt.Errorf("monitor_process must be set")
	}
	if c.RebootPolicy != PolicyExecute && c.RebootPolicy != PolicyDryRun {
		return fmt.Errorf("reboot_policy must be %q or %q", PolicyExecute, PolicyDryRun)
	}
	if _, err := c.CheckEvery(); err != nil {
		return err
	}
	if _, err := c.ReportEvery(); err != nil {
		return err
	}
	if _, _, err := ParseClock(c.NightlyRebootAt); err != nil {
		return err
	}
	return nil
}

// CheckEvery returns the health check interval.
func (c Config) CheckEvery() (time.Duration, error) {
	return parseInterval("check_interval", c.CheckInterval)
}

// ReportEvery returns the temperature report interval.
func (c Config) ReportEvery() (time.Duration, error) {
	return parseInterval("report_interval", c.ReportInterval)
}

// ParseClock parses a wall-clock time like "02:00".
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

func parseInterval(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", name, s)
	}
	return d, nil
}
