// Package door watches the garage door through a distance sensor and turns
// raw centimeter readings into open/close events and open-too-long
// warnings. The sensor driver itself lives outside this package; anything
// that can produce a distance in centimeters can feed the monitor.
package door

import (
	"context"
	"fmt"
	"log"
	"time"
)

// State is the door position derived from a distance reading.
type State string

const (
	Open   State = "open"
	Closed State = "closed"
)

// Event is what changed on one observation.
type Event int

const (
	EventNone Event = iota
	EventOpened
	EventClosed
	EventOpenWarning
)

// Observation is the outcome of feeding one distance reading to a Tracker.
type Observation struct {
	State State
	Event Event
	// OpenMinutes is how long the door has been open, whole minutes.
	OpenMinutes int
	// First marks the very first observation, where a state change is
	// an assumption being corrected rather than a real transition.
	First bool
}

// Tracker holds the door state between observations. The door is assumed
// closed until the first reading says otherwise.
type Tracker struct {
	// OpenThresholdCM: readings below this mean the door is open (the
	// sensor looks down at the door from above).
	OpenThresholdCM float64
	// WarnEveryMinutes is the cadence for open-too-long warnings.
	WarnEveryMinutes int

	state       State
	openedAt    time.Time
	lastWarning int
	iterations  int
}

// NewTracker returns a tracker in the closed state.
func NewTracker(openThresholdCM float64, warnEveryMinutes int) *Tracker {
	return &Tracker{
		OpenThresholdCM:  openThresholdCM,
		WarnEveryMinutes: warnEveryMinutes,
		state:            Closed,
	}
}

// Observe consumes one averaged distance reading taken at now.
func (t *Tracker) Observe(now time.Time, distanceCM float64) Observation {
	obs := Observation{First: t.iterations == 0}
	t.iterations++

	next := Closed
	if distanceCM < t.OpenThresholdCM {
		next = Open
	}

	if next != t.state {
		t.state = next
		if next == Open {
			t.openedAt = now
			t.lastWarning = 0
			obs.Event = EventOpened
		} else {
			obs.Event = EventClosed
		}
		obs.State = next
		return obs
	}

	obs.State = t.state
	if t.state == Open {
		minutes := int(now.Sub(t.openedAt).Minutes())
		obs.OpenMinutes = minutes
		if t.WarnEveryMinutes > 0 && minutes > 0 &&
			minutes%t.WarnEveryMinutes == 0 && minutes != t.lastWarning {
			t.lastWarning = minutes
			obs.Event = EventOpenWarning
		}
	}
	return obs
}

// State returns the tracker's current door state.
func (t *Tracker) State() State {
	return t.state
}

// DistanceSource produces one distance measurement in centimeters.
type DistanceSource interface {
	Distance(ctx context.Context) (float64, error)
}

// Journal receives the monitor's log entries.
type Journal interface {
	Informationf(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Notifier delivers door events to chat.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Monitor runs the watch loop: sample, average, track, report.
type Monitor struct {
	Source   DistanceSource
	Journal  Journal
	Notifier Notifier
	Tracker  *Tracker

	// Samples per averaged measurement and the delay between them.
	Samples     int
	SampleDelay time.Duration
	// Interval between averaged measurements.
	Interval time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

const (
	openedMessage      = "Garage door just opened!"
	closedMessage      = "Garage door just closed!"
	openWarningMessage = "Garage door has been open more than %d minutes"
)

// Run watches the door until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if m.Samples <= 0 {
		m.Samples = 3
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.sleep == nil {
		m.sleep = sleepCtx
	}

	m.Journal.Informationf("door monitoring started")

	for iteration := 0; ; iteration++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		distance, err := m.average(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.Journal.Warningf("distance measurement failed: %v", err)
			m.sleep(ctx, m.Interval)
			continue
		}

		m.Journal.Debugf("%d distance: %5.1f cm", iteration, distance)

		obs := m.Tracker.Observe(m.now(), distance)
		m.Journal.Informationf("%d door is currently %s", iteration, obs.State)
		m.report(ctx, obs)

		m.sleep(ctx, m.Interval)
	}
}

// average takes Samples measurements and returns their mean.
func (m *Monitor) average(ctx context.Context) (float64, error) {
	var sum float64
	for i := 0; i < m.Samples; i++ {
		d, err := m.Source.Distance(ctx)
		if err != nil {
			return 0, fmt.Errorf("measurement %d: %w", i, err)
		}
		m.Journal.Debugf("measurement %d: %.2f cm", i, d)
		sum += d
		if i < m.Samples-1 {
			m.sleep(ctx, m.SampleDelay)
		}
	}
	return sum / float64(m.Samples), nil
}

func (m *Monitor) report(ctx context.Context, obs Observation) {
	var text string
	switch obs.Event {
	case EventOpened:
		m.Journal.Informationf(openedMessage)
		text = openedMessage
	case EventClosed:
		m.Journal.Informationf(closedMessage)
		text = closedMessage
	case EventOpenWarning:
		text = fmt.Sprintf(openWarningMessage, obs.OpenMinutes)
		m.Journal.Warningf("%s", text)
	default:
		return
	}

	// The first observation just corrects the assumed starting state;
	// nobody needs a phone alert for that.
	if obs.First && obs.Event != EventOpenWarning {
		return
	}
	if m.Notifier == nil {
		return
	}
	if err := m.Notifier.Send(ctx, text); err != nil {
		log.Printf("failed to send door notification: %v", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
