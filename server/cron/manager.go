package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// ScheduledJob describes a registered trigger.
type ScheduledJob struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	NextRun  time.Time `json:"next_run"`
}

// CronTriggerManager manages named triggers.
type CronTriggerManager struct {
	triggers map[string]*CronTrigger
	logger   *slog.Logger
}

// NewCronTriggerManager creates a manager with no triggers.
func NewCronTriggerManager(logger *slog.Logger) *CronTriggerManager {
	return &CronTriggerManager{
		triggers: make(map[string]*CronTrigger),
		logger:   logger,
	}
}

// Add registers job under name. It fails if the name is taken or the spec
// doesn't parse. Add must not be called after Start.
func (m *CronTriggerManager) Add(name, spec string, job Job) error {
	if _, ok := m.triggers[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}
	trigger, err := NewCronTrigger(name, spec, job, m.logger)
	if err != nil {
		return fmt.Errorf("creating trigger for %s: %w", name, err)
	}
	m.triggers[name] = trigger

	m.logger.Info("trigger registered",
		"job", name,
		"schedule", spec,
		"next_run", trigger.NextRun(),
	)
	return nil
}

// Start launches all triggers. Each trigger runs in its own goroutine.
// Returns immediately. All goroutines exit when ctx is cancelled.
func (m *CronTriggerManager) Start(ctx context.Context) {
	for _, trigger := range m.triggers {
		trigger.Start(ctx)
	}
}

// NextRun returns the next run of the named job.
func (m *CronTriggerManager) NextRun(name string) (time.Time, bool) {
	trigger, ok := m.triggers[name]
	if !ok {
		return time.Time{}, false
	}
	return trigger.NextRun(), true
}

// Jobs returns the registered jobs ordered by next run time.
func (m *CronTriggerManager) Jobs() []ScheduledJob {
	jobs := make([]ScheduledJob, 0, len(m.triggers))
	for _, t := range m.triggers {
		jobs = append(jobs, ScheduledJob{
			Name:     t.Name(),
			Schedule: t.Spec(),
			NextRun:  t.NextRun(),
		})
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].NextRun.Equal(jobs[j].NextRun) {
			return jobs[i].Name < jobs[j].Name
		}
		return jobs[i].NextRun.Before(jobs[j].NextRun)
	})
	return jobs
}
