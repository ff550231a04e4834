package door

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const commandTimeout = 10 * time.Second

// CommandSource reads distance by running an external helper that prints
// the measured centimeters on stdout. This keeps the GPIO echo timing out
// of this process; the helper owns the hardware.
type CommandSource struct {
	Command []string

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewCommandSource wraps the given command line.
func NewCommandSource(command []string) (*CommandSource, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("empty distance command")
	}
	return &CommandSource{Command: command}, nil
}

// Distance runs the helper once and parses its output.
func (s *CommandSource) Distance(ctx context.Context) (float64, error) {
	run := s.run
	if run == nil {
		run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	out, err := run(ctx, s.Command[0], s.Command[1:]...)
	if err != nil {
		return 0, fmt.Errorf("run %s: %w", s.Command[0], err)
	}

	text := strings.TrimSpace(string(out))
	cm, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse distance %q: %w", text, err)
	}
	if cm < 0 {
		return 0, fmt.Errorf("negative distance %v cm", cm)
	}
	return cm, nil
}
