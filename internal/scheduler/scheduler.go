// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a recurring maintenance chore. Run returns how many items it
// acted on so the scheduler can keep quiet on no-op ticks.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) (int, error)
}

// Maintainer is the runtime surface the standard maintenance jobs
// drive: closing idle sessions and re-sending undelivered callbacks.
type Maintainer interface {
	ReapIdle(ctx context.Context, idleAfter time.Duration) (int, error)
	RetryCallbacks(ctx context.Context) (int, error)
}

// ForRuntime builds the standard maintenance set on a shared schedule:
// the idle-session reaper and the callback retry sweep.
func ForRuntime(m Maintainer, spec string, idleAfter time.Duration) []Job {
	return []Job{
		{
			Name: "idle-reap",
			Spec: spec,
			Run: func(ctx context.Context) (int, error) {
				return m.ReapIdle(ctx, idleAfter)
			},
		},
		{
			Name: "callback-sweep",
			Spec: spec,
			Run:  m.RetryCallbacks,
		},
	}
}

// Scheduler runs maintenance jobs on cron schedules. Jobs are fixed at
// construction; each tick runs under its own timeout so a slow store
// cannot wedge the cron goroutine forever.
type Scheduler struct {
	jobs    []Job
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler for the given jobs.
func New(jobs []Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:    jobs,
		cron:    cron.New(cron.WithParser(cronParser)),
		logger:  logger,
		timeout: time.Minute,
	}
}

// Start registers each job with a schedule as a cron entry and starts
// the ticker. Jobs without a schedule or a Run function are skipped; an
// invalid cron expression fails startup since the specs come from
// configuration, not user data.
func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		if job.Spec == "" || job.Run == nil {
			continue
		}
		job := job
		if _, err := s.cron.AddFunc(job.Spec, func() { s.runJob(job) }); err != nil {
			return fmt.Errorf("job %s: schedule %q: %w", job.Name, job.Spec, err)
		}
		s.logger.Info("maintenance job scheduled", "job", job.Name, "spec", job.Spec)
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) runJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := job.Run(ctx)
	if err != nil {
		s.logger.Error("maintenance job failed", "job", job.Name, "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("maintenance job done", "job", job.Name, "acted_on", n)
	}
}

// Stop halts the ticker and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
