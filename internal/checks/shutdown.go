package checks

import (
	"context"

	"github.com/makeralchemy/gd-monitor/internal/power"
)

// ShutdownTrigger logs and powers the host off. Used for forced
// maintenance, typically before pulling the plug on the Pi.
type ShutdownTrigger struct {
	Journal Journal
	Power   power.Controller
}

// Run requests the shutdown. It is unconditional.
func (t *ShutdownTrigger) Run(ctx context.Context) error {
	t.Journal.Informationf("shutdown requested, powering off")
	return t.Power.Shutdown(ctx, "shutdown requested")
}
