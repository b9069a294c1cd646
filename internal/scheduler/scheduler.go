package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs a task on a cron schedule. A tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	Cron *cron.Cron
	log  logrus.FieldLogger
}

// NewScheduler creates a scheduler with six-field (seconds first) specs.
func NewScheduler(log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
		),
		log: log,
	}
}

// Register adds task under spec.
func (s *Scheduler) Register(name, spec string, task func()) error {
	if _, err := s.Cron.AddFunc(spec, task); err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	s.log.WithFields(logrus.Fields{"task": name, "spec": spec}).Debug("task registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Run registers task, optionally runs it once immediately, and blocks until
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, spec string, runNow bool, task func()) error {
	if err := s.Register("watch", spec, task); err != nil {
		return err
	}
	if runNow {
		task()
	}

	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}
