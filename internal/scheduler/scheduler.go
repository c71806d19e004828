// Package scheduler runs the periodic batch jobs (snapshot sweep, alert
// checks, price refresh) on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
)

// Job represents a scheduled job
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.SugaredLogger
	timeout time.Duration
}

// New creates a scheduler whose schedules include a seconds field. Each run
// gets its own context bounded by timeout.
func New(timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:     logger.Named("scheduler"),
		timeout: timeout,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}

// AddJob registers a job on a cron schedule
// Schedule examples:
//   - "0 59 23 * * *"  - 23:59:00 every day
//   - "0 */5 * * * *"  - Every 5 minutes
//   - "@every 30s"     - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.run(job) }); err != nil {
		return err
	}
	s.log.Infow("Job registered", "schedule", schedule, "job", job.Name())
	return nil
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Infow("Running job immediately", "job", job.Name())
	return s.run(job)
}

func (s *Scheduler) run(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	s.log.Debugw("Running job", "job", job.Name())
	if err := job.Run(ctx); err != nil {
		s.log.Errorw("Job failed", "job", job.Name(), "error", err, "duration", time.Since(start))
		return err
	}
	s.log.Debugw("Job completed", "job", job.Name(), "duration", time.Since(start))
	return nil
}
