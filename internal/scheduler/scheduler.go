// Package scheduler drives single or recurring runs. The recurring loop
// wakes on a coarse tick so an external stop is observed with low latency
// without polling the network APIs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTick = time.Second

// Runner executes one full run
type Runner interface {
	Run(ctx context.Context) error
}

// Scheduler manages run execution
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runAtStart bool
	logger     *logrus.Logger

	// Swapped in tests.
	tick time.Duration
	now  func() time.Time

	lastRun time.Time
	hasRun  bool
}

// NewScheduler creates a new scheduler
func NewScheduler(runner Runner, interval time.Duration, runAtStart bool, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runAtStart: runAtStart,
		logger:     logger,
		tick:       defaultTick,
		now:        time.Now,
	}
}

// RunOnce performs a single run and returns its error
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runner.Run(ctx)
}

// Start runs the recurring loop until the context is cancelled. A failed run
// is logged and the loop survives to attempt the next scheduled run. A run in
// progress completes before the stop flag is re-checked.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("interval must be greater than 0")
	}

	s.logger.WithField("interval", s.interval).Info("Running in scheduled mode")

	if s.runAtStart {
		s.logger.Info("Running immediately at startup")
		s.execute(ctx)
	} else {
		// First scheduled run happens one interval after startup.
		s.lastRun = s.now()
		s.hasRun = true
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stop requested, exiting scheduled loop")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick checks whether a run is due and executes it. It is the unit the loop
// repeats every wake.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()
	if !s.hasRun {
		return
	}

	remaining := s.interval - now.Sub(s.lastRun)
	if remaining > 0 {
		s.logger.WithField("next_run_in", remaining.Round(time.Second)).Debug("Waiting for next scheduled run")
		return
	}

	s.logger.WithField("interval", s.interval).Info("Running scheduled execution")
	s.execute(ctx)
}

// execute performs one run and advances lastRun to the tick time
func (s *Scheduler) execute(ctx context.Context) {
	started := s.now()
	if err := s.runner.Run(ctx); err != nil {
		s.logger.WithError(err).Error("Run failed")
	}
	s.lastRun = started
	s.hasRun = true
	s.logger.WithField("next_run", started.Add(s.interval).Format("2006-01-02 15:04:05")).Info("Run finished")
}
