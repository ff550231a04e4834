package checks

import (
	"context"
	"fmt"
	"log"

	"github.com/makeralchemy/gd-monitor/internal/sensors"
)

// TelemetrySink receives readings for off-host storage. Optional.
type TelemetrySink interface {
	Publish(r sensors.Reading) error
}

// Reporter emits one journal entry and one chat notification with the
// current temperatures every invocation, whatever the values are. It is a
// heartbeat: its absence from the log is itself a signal.
type Reporter struct {
	Source    sensors.Source
	Journal   Journal
	Notifier  Notifier
	Telemetry TelemetrySink
}

// Run performs one report.
func (r *Reporter) Run(ctx context.Context) error {
	reading, cpuErr, gpuErr := sensors.Sample(ctx, r.Source)

	text := fmt.Sprintf("CPU temperature is %s, GPU temperature is %s",
		formatMetric(reading.CPU, cpuErr), formatMetric(reading.GPU, gpuErr))

	r.Journal.Informationf("%s", text)
	if r.Notifier != nil {
		if err := r.Notifier.Send(ctx, text); err != nil {
			log.Printf("failed to send temperature report: %v", err)
		}
	}

	if r.Telemetry != nil && cpuErr == nil && gpuErr == nil {
		if err := r.Telemetry.Publish(reading); err != nil {
			log.Printf("failed to publish telemetry: %v", err)
		}
	}
	return nil
}

func formatMetric(value float64, err error) string {
	if err != nil {
		return fmt.Sprintf("unavailable (%v)", err)
	}
	return fmt.Sprintf("%.1fC", value)
}
