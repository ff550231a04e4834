// Command gdmonitor is the health and monitoring agent for the garage door
// Raspberry Pi. Run as a daemon it schedules the thermal and liveness
// guards every few minutes, reports temperatures on the hour, reboots the
// host nightly, and optionally watches the door itself. Each check can
// also be run one-shot from an external scheduler.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kardianos/service"

	"github.com/makeralchemy/gd-monitor/internal/checks"
	"github.com/makeralchemy/gd-monitor/internal/config"
	"github.com/makeralchemy/gd-monitor/internal/door"
	"github.com/makeralchemy/gd-monitor/internal/journal"
	"github.com/makeralchemy/gd-monitor/internal/notify"
	"github.com/makeralchemy/gd-monitor/internal/power"
	"github.com/makeralchemy/gd-monitor/internal/proctab"
	"github.com/makeralchemy/gd-monitor/internal/scheduler"
	"github.com/makeralchemy/gd-monitor/internal/sensors"
	"github.com/makeralchemy/gd-monitor/internal/telemetry"
)

// deps is everything the checks share, built once from configuration.
type deps struct {
	cfg config.Config

	activity *journal.Journal
	startup  *journal.Journal
	health   *journal.Journal

	notifier  *notify.Slack
	powerCtl  power.Controller
	source    sensors.Source
	table     *proctab.Table
	telemetry *telemetry.Publisher
}

func buildDeps(cfg config.Config) *deps {
	d := &deps{
		cfg:      cfg,
		activity: journal.New("activity", cfg.ActivityLog),
		startup:  journal.New("startup", cfg.StartupLog),
		health:   journal.New("health", cfg.HealthLog),
		source:   sensors.NewPi(),
		table:    proctab.New(),
	}

	if cfg.SlackWebhookURL != "" {
		n, err := notify.NewSlack(cfg.SlackWebhookURL, cfg.SlackChannel)
		if err != nil {
			log.Fatalf("cannot create slack notifier: %v", err)
		}
		d.notifier = n
	} else {
		log.Printf("no slack_webhook_url configured; chat notifications disabled")
	}

	switch cfg.RebootPolicy {
	case config.PolicyDryRun:
		d.powerCtl = power.DryRun{Logf: d.health.Informationf}
	default:
		d.powerCtl = power.Exec{}
	}

	if cfg.NatsURL != "" {
		p, err := telemetry.NewPublisher(cfg.NatsURL, cfg.NatsSubject, cfg.SystemName)
		if err != nil {
			log.Printf("telemetry disabled: %v", err)
		} else {
			d.telemetry = p
		}
	}

	return d
}

func (d *deps) close() {
	if d.telemetry != nil {
		d.telemetry.Close()
	}
	_ = d.activity.Close()
	_ = d.startup.Close()
	_ = d.health.Close()
}

// notifier returns the configured notifier as the interface the checks
// accept, or nil so the checks skip notification cleanly.
func (d *deps) checksNotifier() checks.Notifier {
	if d.notifier == nil {
		return nil
	}
	return d.notifier
}

func (d *deps) thermalGuard() *checks.ThermalGuard {
	return &checks.ThermalGuard{
		Source:     d.source,
		Journal:    d.health,
		Notifier:   d.checksNotifier(),
		Power:      d.powerCtl,
		ThresholdC: d.cfg.TempThresholdC,
	}
}

func (d *deps) livenessGuard() *checks.LivenessGuard {
	return &checks.LivenessGuard{
		Journal:     d.health,
		Power:       d.powerCtl,
		Table:       d.table,
		ProcessName: d.cfg.MonitorProcess,
	}
}

func (d *deps) reporter() *checks.Reporter {
	r := &checks.Reporter{
		Source:   d.source,
		Journal:  d.health,
		Notifier: d.checksNotifier(),
	}
	if d.telemetry != nil {
		r.Telemetry = d.telemetry
	}
	return r
}

// program implements service.Interface for running under the init system.
type program struct {
	deps   *deps
	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches the daemon loop asynchronously.
func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		runDaemon(ctx, p.deps)
	}()
	return nil
}

// Stop cancels the daemon loop and waits briefly for it to drain.
func (p *program) Stop(s service.Service) error {
	log.Println("service stopping")
	if p.cancel != nil {
		p.cancel()
	}
	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
	}
	p.deps.close()
	return nil
}

// runDaemon schedules the checks and, when configured, the door monitor.
func runDaemon(ctx context.Context, d *deps) {
	d.startup.Informationf("garage door monitor started")

	checkEvery, err := d.cfg.CheckEvery()
	if err != nil {
		log.Fatalf("bad check interval: %v", err)
	}
	reportEvery, err := d.cfg.ReportEvery()
	if err != nil {
		log.Fatalf("bad report interval: %v", err)
	}
	rebootHour, rebootMinute, err := config.ParseClock(d.cfg.NightlyRebootAt)
	if err != nil {
		log.Fatalf("bad nightly reboot time: %v", err)
	}

	thermal := d.thermalGuard()
	liveness := d.livenessGuard()
	reporter := d.reporter()

	sched := scheduler.New()
	sched.Add(scheduler.Job{
		Name:  "thermal guard",
		Every: checkEvery,
		Run:   thermal.Run,
	})
	sched.Add(scheduler.Job{
		Name:  "liveness guard",
		Every: checkEvery,
		Run: func(ctx context.Context) error {
			_, err := liveness.Run(ctx)
			return err
		},
	})
	sched.Add(scheduler.Job{
		Name:  "temperature report",
		Every: reportEvery,
		Run:   reporter.Run,
	})
	sched.AddDaily(scheduler.DailyJob{
		Name:   "nightly reboot",
		Hour:   rebootHour,
		Minute: rebootMinute,
		Run: func(ctx context.Context) error {
			d.health.Informationf("nightly reboot")
			return d.powerCtl.Reboot(ctx, "nightly reboot")
		},
	})

	if len(d.cfg.Door.DistanceCommand) > 0 {
		go runDoorMonitor(ctx, d)
	} else {
		log.Printf("no door.distance_command configured; door monitoring disabled")
	}

	sched.Run(ctx)
}

func runDoorMonitor(ctx context.Context, d *deps) {
	src, err := door.NewCommandSource(d.cfg.Door.DistanceCommand)
	if err != nil {
		log.Printf("door monitoring disabled: %v", err)
		return
	}

	sampleDelay, err := time.ParseDuration(d.cfg.Door.SampleDelay)
	if err != nil {
		log.Printf("bad door.sample_delay, using 500ms: %v", err)
		sampleDelay = 500 * time.Millisecond
	}
	interval, err := time.ParseDuration(d.cfg.Door.CheckInterval)
	if err != nil {
		log.Printf("bad door.check_interval, using 1m: %v", err)
		interval = time.Minute
	}

	m := &door.Monitor{
		Source:      src,
		Journal:     d.activity,
		Tracker:     door.NewTracker(d.cfg.Door.OpenThresholdCM, d.cfg.Door.WarnEveryMinutes),
		Samples:     d.cfg.Door.Samples,
		SampleDelay: sampleDelay,
		Interval:    interval,
	}
	if d.notifier != nil {
		m.Notifier = d.notifier
	}
	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("door monitor stopped: %v", err)
	}
}

// modes the -mode flag accepts.
var modes = map[string]bool{
	"daemon":    true,
	"thermal":   true,
	"liveness":  true,
	"report":    true,
	"shutdown":  true,
	"doorwatch": true,
}

func main() {
	configFile := flag.String("config", "/etc/gdmonitor/config.json", "Path to JSON config file")
	modeFlag := flag.String("mode", "daemon", "daemon | thermal | liveness | report | shutdown | doorwatch")
	svcFlag := flag.String("service", "", "Control the system service: install, uninstall, start, stop, run")
	webhookFlag := flag.String("webhook", "", "Override slack_webhook_url from the config file")
	processFlag := flag.String("process", "", "Override monitor_process from the config file")
	thresholdFlag := flag.Float64("threshold", 0, "Override temp_threshold_c from the config file")
	policyFlag := flag.String("reboot-policy", "", "Override reboot_policy: execute or dry-run")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("could not read config file %s, using defaults: %v", *configFile, err)
	}
	if *webhookFlag != "" {
		cfg.SlackWebhookURL = *webhookFlag
	}
	if *processFlag != "" {
		cfg.MonitorProcess = *processFlag
	}
	if *thresholdFlag != 0 {
		cfg.TempThresholdC = *thresholdFlag
	}
	if *policyFlag != "" {
		cfg.RebootPolicy = *policyFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if !modes[*modeFlag] {
		log.Fatalf("unknown mode %q", *modeFlag)
	}

	d := buildDeps(cfg)

	switch *modeFlag {
	case "daemon":
		// handled below
	case "thermal":
		runOnce(d, func(ctx context.Context) error { return d.thermalGuard().Run(ctx) })
		return
	case "liveness":
		runLivenessOnce(d)
		return
	case "report":
		runOnce(d, func(ctx context.Context) error { return d.reporter().Run(ctx) })
		return
	case "shutdown":
		trigger := &checks.ShutdownTrigger{Journal: d.health, Power: d.powerCtl}
		runOnce(d, trigger.Run)
		return
	case "doorwatch":
		runDoorwatch(d)
		return
	}

	svcConfig := &service.Config{
		Name:        "gdmonitor",
		DisplayName: "Garage Door Monitor",
		Description: "Health checks, thermal guard, and door monitoring for the garage door Pi.",
	}

	prg := &program{deps: d}
	s, err := service.New(prg, svcConfig)
	if err != nil {
		log.Fatalf("cannot create service: %v", err)
	}

	if *svcFlag != "" {
		if err := service.Control(s, *svcFlag); err != nil {
			log.Printf("valid service actions: install, uninstall, start, stop, run")
			log.Fatal(err)
		}
		log.Printf("service action %q executed successfully", *svcFlag)
		return
	}

	if err := s.Run(); err != nil {
		log.Fatal(err)
	}
}

// runDoorwatch runs the door monitor in the foreground until interrupted,
// for installs that keep the health checks on an external scheduler.
func runDoorwatch(d *deps) {
	defer d.close()
	if len(d.cfg.Door.DistanceCommand) == 0 {
		log.Fatalf("doorwatch requires door.distance_command to be configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runDoorMonitor(ctx, d)
}

// runOnce executes a single check with a generous timeout and closes the
// shared resources afterwards.
func runOnce(d *deps, fn func(ctx context.Context) error) {
	defer d.close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Fatalf("check failed: %v", err)
	}
}

// runLivenessOnce exits 0 when the monitored process is running and 1 when
// it is not, so external schedulers can branch on the result.
func runLivenessOnce(d *deps) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	running, err := d.livenessGuard().Run(ctx)
	cancel()
	d.close()

	if err != nil {
		log.Fatalf("liveness check failed: %v", err)
	}
	if !running {
		os.Exit(1)
	}
}
