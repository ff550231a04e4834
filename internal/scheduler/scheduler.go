// Package scheduler runs the health checks on a fixed cadence, replacing
// the crontab the checks were originally wired into. Interval jobs fire
// every N; daily jobs fire once a day at a wall-clock time.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job runs repeatedly at a fixed interval. A job that returns an error
// stops repeating; the interval runner this replaces behaved the same way,
// refusing to keep re-issuing a command that failed.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// DailyJob runs once a day at Hour:Minute local time.
type DailyJob struct {
	Name   string
	Hour   int
	Minute int
	Run    func(ctx context.Context) error
}

// Scheduler drives a set of jobs until its context is cancelled.
type Scheduler struct {
	jobs  []Job
	daily []DailyJob

	now func() time.Time
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{now: time.Now}
}

// Add registers an interval job.
func (s *Scheduler) Add(j Job) {
	s.jobs = append(s.jobs, j)
}

// AddDaily registers a daily job.
func (s *Scheduler) AddDaily(j DailyJob) {
	s.daily = append(s.daily, j)
}

// Run blocks until ctx is cancelled, firing each job on its own cadence.
// Jobs run concurrently with each other but never with themselves.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	for _, j := range s.jobs {
		wg.Add(1)
		go func(j Job) {
			defer wg.Done()
			s.runInterval(ctx, j)
		}(j)
	}
	for _, j := range s.daily {
		wg.Add(1)
		go func(j DailyJob) {
			defer wg.Done()
			s.runDaily(ctx, j)
		}(j)
	}

	wg.Wait()
}

func (s *Scheduler) runInterval(ctx context.Context, j Job) {
	log.Printf("scheduling %s every %v", j.Name, j.Every)

	// First run happens immediately; the checks are cheap and an
	// operator starting the agent wants to see results right away.
	if err := j.Run(ctx); err != nil {
		log.Printf("%s failed, not rescheduling: %v", j.Name, err)
		return
	}

	ticker := time.NewTicker(j.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				log.Printf("%s failed, not rescheduling: %v", j.Name, err)
				return
			}
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context, j DailyJob) {
	for {
		next := NextDaily(s.now(), j.Hour, j.Minute)
		wait := next.Sub(s.now())
		log.Printf("scheduling %s at %02d:%02d (in %v)", j.Name, j.Hour, j.Minute, wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := j.Run(ctx); err != nil {
				log.Printf("%s failed, not rescheduling: %v", j.Name, err)
				return
			}
		}
	}
}

// NextDaily returns the next occurrence of hour:minute strictly after now,
// in now's location.
func NextDaily(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
