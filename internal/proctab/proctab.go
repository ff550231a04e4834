// Package proctab answers "is that process running" by walking the OS
// process table.
package proctab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/process"
)

// Table inspects the process table.
type Table struct{}

// New returns a process table backed by the running OS.
func New() *Table {
	return &Table{}
}

// Running reports whether a process other than the caller has name as its
// executable name or as one of its command line arguments (exact or by
// basename). Matching arguments catches interpreter-hosted programs whose
// executable name is just the runtime. The caller's own process is always
// skipped: a one-shot liveness check carries the monitored name on its own
// command line and must not count itself as the process it is looking for.
func (t *Table) Running(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("empty process name")
	}

	self := int32(os.Getpid())
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("list processes: %w", err)
	}

	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		if pn, err := p.NameWithContext(ctx); err == nil && pn == name {
			return true, nil
		}
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue
		}
		for _, arg := range args {
			if arg == name || filepath.Base(arg) == name {
				return true, nil
			}
		}
	}
	return false, nil
}
