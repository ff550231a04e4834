// Package sensors reads CPU and GPU temperatures on a Raspberry Pi.
//
// The CPU value comes from the sysfs thermal zone (millidegrees Celsius),
// with gopsutil's sensor table as a fallback for boards that expose hwmon
// instead. The GPU value comes from the firmware's vcgencmd utility. A
// reading that cannot be obtained is reported as an error, never as a zero
// value, so callers can tell "sensor broken" apart from "genuinely cold".
package sensors

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

// Reading is one sample of both temperatures, in degrees Celsius.
type Reading struct {
	CPU       float64   `json:"cpu_c"`
	GPU       float64   `json:"gpu_c"`
	Timestamp time.Time `json:"timestamp"`
}

// Source reads the two temperatures the guards care about.
type Source interface {
	CPUTemp(ctx context.Context) (float64, error)
	GPUTemp(ctx context.Context) (float64, error)
}

// Default sysfs locations, tried in order.
var defaultCPUTempPaths = []string{
	"/sys/class/thermal/thermal_zone0/temp",
	"/sys/devices/virtual/thermal/thermal_zone0/temp",
	"/sys/class/hwmon/hwmon0/temp1_input",
}

const gpuCommandTimeout = 5 * time.Second

// vcgencmd measure_temp prints a line like: temp=47.8'C
var vcgencmdTempRe = regexp.MustCompile(`temp=([0-9]+(?:\.[0-9]+)?)'C`)

// Pi reads temperatures the way the firmware exposes them on Raspberry Pi OS.
type Pi struct {
	// CPUTempPaths overrides the sysfs candidates when non-empty.
	CPUTempPaths []string
	// GPUCommand overrides the vendor utility invocation when non-empty.
	GPUCommand []string

	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewPi returns a Source using the standard sysfs path and vcgencmd.
func NewPi() *Pi {
	return &Pi{}
}

// CPUTemp reads the CPU temperature in Celsius.
func (p *Pi) CPUTemp(ctx context.Context) (float64, error) {
	paths := p.CPUTempPaths
	if len(paths) == 0 {
		paths = defaultCPUTempPaths
	}

	var lastErr error
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		c, err := ParseMilliCelsius(string(data))
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", path, err)
			continue
		}
		return c, nil
	}

	// Some boards expose temperatures only through hwmon names that
	// gopsutil already knows how to enumerate.
	if c, err := sensorTableCPUTemp(ctx); err == nil {
		return c, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no thermal zone found")
	}
	return 0, fmt.Errorf("read cpu temperature: %w", lastErr)
}

// GPUTemp runs the vendor utility and parses its output.
func (p *Pi) GPUTemp(ctx context.Context) (float64, error) {
	cmd := p.GPUCommand
	if len(cmd) == 0 {
		cmd = []string{"vcgencmd", "measure_temp"}
	}

	run := p.runCommand
	if run == nil {
		run = runCombined
	}

	ctx, cancel := context.WithTimeout(ctx, gpuCommandTimeout)
	defer cancel()

	out, err := run(ctx, cmd[0], cmd[1:]...)
	if err != nil {
		return 0, fmt.Errorf("run %s: %w", cmd[0], err)
	}
	c, err := ParseVcgencmdTemp(string(out))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", cmd[0], err)
	}
	return c, nil
}

// Sample reads both temperatures at once. Both errors are reported; a
// failure on one metric does not hide the other.
func Sample(ctx context.Context, src Source) (Reading, error, error) {
	r := Reading{Timestamp: time.Now()}
	var cpuErr, gpuErr error
	r.CPU, cpuErr = src.CPUTemp(ctx)
	r.GPU, gpuErr = src.GPUTemp(ctx)
	return r, cpuErr, gpuErr
}

// ParseMilliCelsius converts a sysfs thermal zone value (millidegrees) to
// degrees Celsius.
func ParseMilliCelsius(s string) (float64, error) {
	milli, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse millidegrees %q: %w", strings.TrimSpace(s), err)
	}
	return milli / 1000, nil
}

// ParseVcgencmdTemp extracts the Celsius value from vcgencmd measure_temp
// output. Unexpected output is an error, not a zero reading.
func ParseVcgencmdTemp(s string) (float64, error) {
	m := vcgencmdTempRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unexpected measure_temp output %q", strings.TrimSpace(s))
	}
	return strconv.ParseFloat(m[1], 64)
}

func sensorTableCPUTemp(ctx context.Context) (float64, error) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range temps {
		key := strings.ToLower(t.SensorKey)
		if strings.Contains(key, "cpu") || strings.Contains(key, "core") || strings.Contains(key, "soc") {
			return t.Temperature, nil
		}
	}
	return 0, fmt.Errorf("no cpu sensor in sensor table")
}

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
