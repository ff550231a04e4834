// Package power requests host reboots and shutdowns. The destructive calls
// sit behind the Controller interface so the guards can be tested without
// actually power-cycling anything, and so the reboot policy can be switched
// between execute and dry-run from configuration.
package power

import (
	"context"
	"fmt"
	"log"
	"os/exec"
)

// Controller requests changes to host power state. Implementations must
// treat each call as the terminal action of its invocation.
type Controller interface {
	Reboot(ctx context.Context, reason string) error
	Shutdown(ctx context.Context, reason string) error
}

// Exec performs real reboots and shutdowns via the system shutdown command.
// Requires the process to run with the privilege to do so.
type Exec struct{}

// Reboot reboots the host immediately.
func (Exec) Reboot(ctx context.Context, reason string) error {
	log.Printf("rebooting host: %s", reason)
	return run(ctx, "shutdown", "-r", "now")
}

// Shutdown powers the host off immediately.
func (Exec) Shutdown(ctx context.Context, reason string) error {
	log.Printf("shutting down host: %s", reason)
	return run(ctx, "shutdown", "-h", "now")
}

func run(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w (%s)", name, args, err, out)
	}
	return nil
}

// DryRun records the command that would have run instead of executing it.
// One of the original check variants only printed the reboot command; that
// behavior survives here as an explicit policy choice.
type DryRun struct {
	Logf func(format string, args ...interface{})
}

// Reboot logs the reboot that would have happened.
func (d DryRun) Reboot(ctx context.Context, reason string) error {
	d.logf("dry-run: would execute 'shutdown -r now' (%s)", reason)
	return nil
}

// Shutdown logs the shutdown that would have happened.
func (d DryRun) Shutdown(ctx context.Context, reason string) error {
	d.logf("dry-run: would execute 'shutdown -h now' (%s)", reason)
	return nil
}

func (d DryRun) logf(format string, args ...interface{}) {
	if d.Logf != nil {
		d.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}
