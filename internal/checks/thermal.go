package checks

import (
	"context"
	"fmt"
	"log"

	"github.com/makeralchemy/gd-monitor/internal/power"
	"github.com/makeralchemy/gd-monitor/internal/sensors"
)

// ThermalGuard samples CPU and GPU temperature once and shuts the host
// down if either is at or over the threshold. A metric that cannot be read
// is reported as its own failure; it does not count as cold and does not
// trigger a shutdown on its own.
type ThermalGuard struct {
	Source     sensors.Source
	Journal    Journal
	Notifier   Notifier
	Power      power.Controller
	ThresholdC float64
}

// Run performs one thermal check. It requests at most one shutdown per
// invocation, after both metrics have been journaled.
func (g *ThermalGuard) Run(ctx context.Context) error {
	threshold := g.ThresholdC
	if threshold == 0 {
		threshold = DefaultThresholdC
	}

	cpu, cpuErr := g.Source.CPUTemp(ctx)
	gpu, gpuErr := g.Source.GPUTemp(ctx)

	overheated := false
	overheated = g.checkMetric(ctx, "CPU", cpu, cpuErr, threshold) || overheated
	overheated = g.checkMetric(ctx, "GPU", gpu, gpuErr, threshold) || overheated

	if overheated {
		cpuText := formatMetric(cpu, cpuErr)
		gpuText := formatMetric(gpu, gpuErr)
		g.Journal.Criticalf("temperature over %.0fC limit (CPU %s, GPU %s), shutting down", threshold, cpuText, gpuText)
		g.notifyDown(ctx, "Pi temperature over %.0fC limit (CPU %s, GPU %s), shutting down now", threshold, cpuText, gpuText)
		return g.Power.Shutdown(ctx, "temperature over threshold")
	}
	return nil
}

// checkMetric journals one metric and reports whether it breached the
// threshold.
func (g *ThermalGuard) checkMetric(ctx context.Context, name string, value float64, readErr error, threshold float64) bool {
	if readErr != nil {
		g.Journal.Criticalf("%s temperature read failed: %v", name, readErr)
		g.notifyDown(ctx, "%s temperature sensor read failed: %v", name, readErr)
		return false
	}
	if value >= threshold {
		g.Journal.Criticalf("%s temperature %.1fC exceeds limit of %.0fC", name, value, threshold)
		g.notifyDown(ctx, "%s temperature %.1fC exceeds limit of %.0fC", name, value, threshold)
		return true
	}
	g.Journal.Informationf("%s temperature is %.1fC", name, value)
	return false
}

func (g *ThermalGuard) notifyDown(ctx context.Context, format string, args ...interface{}) {
	if g.Notifier == nil {
		return
	}
	if err := g.Notifier.SendDown(ctx, fmt.Sprintf(format, args...)); err != nil {
		log.Printf("failed to send down alert: %v", err)
	}
}
