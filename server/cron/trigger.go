// Package cron runs server jobs on cron schedules.
//
// A CronTrigger executes one Job according to a 5 field cron spec. It is
// started once and runs until its context is cancelled.
//
// Example usage:
//
//	trigger, err := cron.NewCronTrigger("snapshot", "0 2 * * *", job, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trigger.Start(ctx)  // Returns immediately, runs in background
//	<-ctx.Done()        // Wait for shutdown signal
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// Job is implemented by anything that can be triggered by the scheduler.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to a Job.
type JobFunc func(ctx context.Context) error

// Run implements Job.
func (f JobFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// CronTrigger executes a Job according to a cron schedule.
type CronTrigger struct {
	name     string
	spec     string
	schedule cron.Schedule
	job      Job
	logger   *slog.Logger
}

// NewCronTrigger creates a new CronTrigger with the given cron specification.
// The spec follows standard cron format (5 fields: minute, hour, day, month, weekday).
// Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewCronTrigger(name, spec string, job Job, logger *slog.Logger) (*CronTrigger, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}

	return &CronTrigger{
		name:     name,
		spec:     spec,
		schedule: schedule,
		job:      job,
		logger:   logger.With("job", name),
	}, nil
}

// Name returns the job name.
func (ct *CronTrigger) Name() string {
	return ct.name
}

// Spec returns the cron spec the trigger was created with.
func (ct *CronTrigger) Spec() string {
	return ct.spec
}

// Start launches a goroutine that runs the job according to the cron schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (ct *CronTrigger) Start(ctx context.Context) {
	go ct.loop(ctx)
}

// NextRun returns the next scheduled run time from now.
func (ct *CronTrigger) NextRun() time.Time {
	return ct.schedule.Next(time.Now())
}

// loop is the main scheduling loop that runs in a goroutine.
func (ct *CronTrigger) loop(ctx context.Context) {
	for {
		nextRun := ct.schedule.Next(time.Now())
		waitDuration := time.Until(nextRun)

		ct.logger.Debug("waiting for next scheduled run",
			"next_run", nextRun,
			"wait_duration", waitDuration,
		)

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			ct.logger.Info("cron trigger shutting down")
			return
		case <-timer.C:
			ct.execute(ctx)
		}
	}
}

// execute runs the job and logs the result.
func (ct *CronTrigger) execute(ctx context.Context) {
	ct.logger.Info("starting scheduled job")

	if err := ct.job.Run(ctx); err != nil {
		ct.logger.Warn("scheduled job completed with error", "error", err)
	} else {
		ct.logger.Info("scheduled job completed successfully")
	}
}
