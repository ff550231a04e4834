package door

import (
	"context"
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func at(minutes float64) time.Time {
	return t0.Add(time.Duration(minutes * float64(time.Minute)))
}

func TestTrackerStartsClosed(t *testing.T) {
	tr := NewTracker(50, 30)
	if tr.State() != Closed {
		t.Errorf("initial state = %q, want %q", tr.State(), Closed)
	}
}

func TestTrackerOpenCloseTransitions(t *testing.T) {
	tr := NewTracker(50, 30)

	// Reading above threshold: still closed, no event.
	obs := tr.Observe(at(0), 120)
	if obs.Event != EventNone || obs.State != Closed {
		t.Errorf("closed reading: event=%v state=%v", obs.Event, obs.State)
	}

	// Door opens.
	obs = tr.Observe(at(1), 20)
	if obs.Event != EventOpened || obs.State != Open {
		t.Errorf("open transition: event=%v state=%v", obs.Event, obs.State)
	}

	// Still open, no new event inside the warning window.
	obs = tr.Observe(at(2), 22)
	if obs.Event != EventNone || obs.State != Open {
		t.Errorf("steady open: event=%v state=%v", obs.Event, obs.State)
	}

	// Door closes.
	obs = tr.Observe(at(3), 130)
	if obs.Event != EventClosed || obs.State != Closed {
		t.Errorf("close transition: event=%v state=%v", obs.Event, obs.State)
	}
}

func TestTrackerFirstObservationFlagged(t *testing.T) {
	tr := NewTracker(50, 30)

	obs := tr.Observe(at(0), 20)
	if !obs.First {
		t.Error("first observation not flagged")
	}
	if obs.Event != EventOpened {
		t.Errorf("door already open at startup should still transition, event=%v", obs.Event)
	}

	obs = tr.Observe(at(1), 20)
	if obs.First {
		t.Error("second observation flagged as first")
	}
}

func TestTrackerOpenWarnings(t *testing.T) {
	tr := NewTracker(50, 30)
	tr.Observe(at(0), 20) // opens

	// 29 minutes open: no warning yet.
	if obs := tr.Observe(at(29), 20); obs.Event != EventNone {
		t.Errorf("29 min: event=%v, want none", obs.Event)
	}

	// 30 minutes: warning.
	obs := tr.Observe(at(30), 20)
	if obs.Event != EventOpenWarning || obs.OpenMinutes != 30 {
		t.Errorf("30 min: event=%v minutes=%d, want warning/30", obs.Event, obs.OpenMinutes)
	}

	// Same multiple again: warning already sent, stay quiet.
	if obs := tr.Observe(at(30.5), 20); obs.Event != EventNone {
		t.Errorf("30.5 min: event=%v, want none (already warned at 30)", obs.Event)
	}

	// Next multiple: warn again.
	obs = tr.Observe(at(60), 20)
	if obs.Event != EventOpenWarning || obs.OpenMinutes != 60 {
		t.Errorf("60 min: event=%v minutes=%d, want warning/60", obs.Event, obs.OpenMinutes)
	}
}

func TestTrackerWarningResetOnReopen(t *testing.T) {
	tr := NewTracker(50, 30)
	tr.Observe(at(0), 20)   // opens
	tr.Observe(at(30), 20)  // warning at 30
	tr.Observe(at(31), 120) // closes
	tr.Observe(at(40), 20)  // reopens

	// 30 minutes after the reopen, warn again even though 30 was
	// already used in the previous open period.
	obs := tr.Observe(at(70), 20)
	if obs.Event != EventOpenWarning || obs.OpenMinutes != 30 {
		t.Errorf("after reopen: event=%v minutes=%d, want warning/30", obs.Event, obs.OpenMinutes)
	}
}

type scriptedSource struct {
	readings []float64
	errs     []error
	i        int
	cancel   context.CancelFunc
}

func (s *scriptedSource) Distance(ctx context.Context) (float64, error) {
	if s.i >= len(s.readings) {
		// Script exhausted: stop the monitor loop.
		s.cancel()
		return s.readings[len(s.readings)-1], nil
	}
	d := s.readings[s.i]
	var err error
	if s.i < len(s.errs) {
		err = s.errs[s.i]
	}
	s.i++
	return d, err
}

type recordingJournal struct {
	infos    []string
	warnings []string
}

func (j *recordingJournal) Informationf(format string, args ...interface{}) {
	j.infos = append(j.infos, format)
}
func (j *recordingJournal) Warningf(format string, args ...interface{}) {
	j.warnings = append(j.warnings, format)
}
func (j *recordingJournal) Debugf(format string, args ...interface{}) {}

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) Send(ctx context.Context, text string) error {
	n.sent = append(n.sent, text)
	return nil
}

func TestMonitorNotifiesOnTransitionNotOnFirst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First averaged reading says open (assumed-closed corrected, no
	// notification), then closed (real transition, notify).
	src := &scriptedSource{readings: []float64{20, 120, 120}, cancel: cancel}
	j := &recordingJournal{}
	n := &recordingNotifier{}
	m := &Monitor{
		Source:   src,
		Journal:  j,
		Notifier: n,
		Tracker:  NewTracker(50, 30),
		Samples:  1,
	}

	err := m.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	if len(n.sent) != 1 {
		t.Fatalf("notifications = %d, want 1 (close only): %v", len(n.sent), n.sent)
	}
	if n.sent[0] != closedMessage {
		t.Errorf("notification = %q, want %q", n.sent[0], closedMessage)
	}
}

func TestMonitorMeasurementFailureLogsAndContinues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{
		readings: []float64{0, 120, 120},
		errs:     []error{errors.New("echo pulse lost"), nil, nil},
		cancel:   cancel,
	}
	j := &recordingJournal{}
	m := &Monitor{
		Source:  src,
		Journal: j,
		Tracker: NewTracker(50, 30),
		Samples: 1,
	}

	if err := m.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if len(j.warnings) == 0 {
		t.Error("measurement failure produced no warning entry")
	}
}

func TestCommandSourceParsesOutput(t *testing.T) {
	src := &CommandSource{
		Command: []string{"measure-distance"},
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("123.4\n"), nil
		},
	}
	got, err := src.Distance(context.Background())
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if got != 123.4 {
		t.Errorf("Distance = %v, want 123.4", got)
	}
}

func TestCommandSourceRejectsGarbage(t *testing.T) {
	for _, out := range []string{"", "not-a-number", "-5"} {
		src := &CommandSource{
			Command: []string{"measure-distance"},
			run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				return []byte(out), nil
			},
		}
		if _, err := src.Distance(context.Background()); err == nil {
			t.Errorf("Distance accepted output %q", out)
		}
	}
}
