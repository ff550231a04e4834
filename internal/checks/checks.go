// Package checks implements the health checks the scheduler runs against
// the garage door Pi: the thermal guard, the liveness guard, the periodic
// temperature reporter, and the forced shutdown trigger.
//
// Each check is a linear pass: sample, journal, optionally notify,
// optionally request a power action. Checks hold no state between runs.
package checks

import "context"

// Journal receives the severity-tagged entries a check produces.
type Journal interface {
	Informationf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})
}

// Notifier delivers chat messages. SendDown marks the message urgent.
type Notifier interface {
	Send(ctx context.Context, text string) error
	SendDown(ctx context.Context, text string) error
}

// ProcessTable reports whether a named process is running.
type ProcessTable interface {
	Running(ctx context.Context, name string) (bool, error)
}

// DefaultThresholdC is the overheat limit applied to both CPU and GPU.
const DefaultThresholdC = 80
