package main

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/makeralchemy/gd-monitor/internal/config"
	"github.com/makeralchemy/gd-monitor/internal/journal"
)

func TestModeFlagAcceptsAllDocumentedModes(t *testing.T) {
	for _, mode := range []string{"daemon", "thermal", "liveness", "report", "shutdown", "doorwatch"} {
		if !modes[mode] {
			t.Errorf("mode %q is documented but not accepted", mode)
		}
	}
	if modes["metrics"] {
		t.Error("unknown mode accepted")
	}
}

func TestRunDoorMonitorWatchesUntilCancelled(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skipf("echo not available: %v", err)
	}

	cfg := config.Default()
	cfg.Door.DistanceCommand = []string{"echo", "120"}
	cfg.Door.Samples = 1
	cfg.Door.SampleDelay = "1ms"
	cfg.Door.CheckInterval = "5ms"

	var buf bytes.Buffer
	d := &deps{
		cfg:      cfg,
		activity: journal.NewWriter("activity", &buf),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	runDoorMonitor(ctx, d)

	out := buf.String()
	if !strings.Contains(out, "door monitoring started") {
		t.Errorf("activity journal missing start entry: %q", out)
	}
	if !strings.Contains(out, "door is currently closed") {
		t.Errorf("activity journal missing door state entry: %q", out)
	}
}
