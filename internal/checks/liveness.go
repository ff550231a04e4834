package checks

import (
	"context"

	"github.com/makeralchemy/gd-monitor/internal/power"
)

// LivenessGuard confirms the door monitor process is running and reboots
// the host when it is not. Whether the reboot is executed or only logged
// is decided by the power.Controller it is given.
type LivenessGuard struct {
	Journal     Journal
	Power       power.Controller
	Table       ProcessTable
	ProcessName string
}

// Run performs one liveness check. It returns whether the process was
// found, so one-shot invocations can exit 0 when running and 1 when not.
func (g *LivenessGuard) Run(ctx context.Context) (bool, error) {
	running, err := g.Table.Running(ctx, g.ProcessName)
	if err != nil {
		g.Journal.Criticalf("cannot inspect process table: %v", err)
		return false, err
	}

	if running {
		g.Journal.Informationf("%s is running", g.ProcessName)
		return true, nil
	}

	g.Journal.Criticalf("%s is not running, rebooting", g.ProcessName)
	if err := g.Power.Reboot(ctx, g.ProcessName+" not running"); err != nil {
		return false, err
	}
	return false, nil
}
