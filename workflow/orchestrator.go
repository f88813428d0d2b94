package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nomis52/journeyid/logging"
)

// LoggerAware is implemented by activities that want a logger scoped to
// themselves. SetLogger is called just before Execute.
type LoggerAware interface {
	SetLogger(logger *slog.Logger)
}

// Orchestrator runs activities sequentially in the order they were added.
type Orchestrator struct {
	logger     *slog.Logger
	loggerHook logging.LoggerHook
	clock      func() time.Time

	mu         sync.RWMutex
	order      []ActivityID
	activities map[ActivityID]Activity
	results    map[ActivityID]*Result
}

// OrchestratorOption is a function that configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithLogger sets a custom logger for the orchestrator
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger.With("component", "orchestrator")
	}
}

// WithLoggerHook derives the logger handed to LoggerAware activities.
func WithLoggerHook(hook logging.LoggerHook) OrchestratorOption {
	return func(o *Orchestrator) {
		o.loggerHook = hook
	}
}

// WithClock sets the time source for result timestamps.
func WithClock(clock func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// NewOrchestrator creates a new orchestrator instance with optional configuration
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		logger:     slog.Default().With("component", "orchestrator"),
		clock:      time.Now,
		activities: make(map[ActivityID]Activity),
		results:    make(map[ActivityID]*Result),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AddActivity appends activities to the run.
// Returns an error if an activity of the same type already exists.
func (o *Orchestrator) AddActivity(activities ...Activity) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, a := range activities {
		id := GetActivityID(a)
		if _, exists := o.activities[id]; exists {
			return fmt.Errorf("activity of type %s already exists", id.String())
		}
		o.activities[id] = a
		o.order = append(o.order, id)
		o.results[id] = &Result{State: NotStarted}
	}
	return nil
}

// Execute initializes every activity and then runs them in order. It returns
// the first error encountered, wrapped with the id of the failing activity.
func (o *Orchestrator) Execute(ctx context.Context) error {
	o.mu.RLock()
	order := append([]ActivityID(nil), o.order...)
	o.mu.RUnlock()

	if len(order) == 0 {
		o.logger.Info("no activities to execute")
		return nil
	}

	o.logger.Debug("starting execution", "activity_count", len(order))

	for _, id := range order {
		if err := o.activities[id].Init(); err != nil {
			o.logger.Error("activity initialization failed", "activity", id.ShortString(), "error", err)
			o.mu.Lock()
			for _, other := range order {
				o.results[other] = &Result{State: NotStarted, Error: fmt.Errorf("initialization blocked by %s: %w", id.ShortString(), err)}
			}
			o.mu.Unlock()
			return fmt.Errorf("activity %s initialization failed: %w", id.ShortString(), err)
		}
	}

	for _, id := range order {
		o.setResult(id, &Result{State: Pending})
	}

	for i, id := range order {
		activityLogger := o.logger.With("activity", id.ShortString())

		if err := ctx.Err(); err != nil {
			activityLogger.Warn("activity cancelled due to context", "error", err)
			o.skip(order[i:], fmt.Errorf("cancelled: %w", err))
			return fmt.Errorf("activity %s cancelled: %w", id.ShortString(), err)
		}

		activity := o.activities[id]
		if aware, ok := activity.(LoggerAware); ok {
			aware.SetLogger(o.loggerFor(id))
		}

		start := o.clock()
		o.setResult(id, &Result{State: Running, StartTime: start})
		activityLogger.Debug("executing activity")

		err := activity.Execute(ctx)
		o.setResult(id, &Result{State: Completed, Error: err, StartTime: start, EndTime: o.clock()})

		if err != nil {
			activityLogger.Error("activity execution failed", "error", err)
			o.skip(order[i+1:], fmt.Errorf("blocked by %s", id.ShortString()))
			return fmt.Errorf("activity %s failed: %w", id.ShortString(), err)
		}
		activityLogger.Debug("activity execution completed successfully")
	}

	o.logger.Debug("execution completed successfully")
	return nil
}

func (o *Orchestrator) loggerFor(id ActivityID) *slog.Logger {
	base := o.logger.With("activity", id.ShortString())
	if o.loggerHook == nil {
		return base
	}
	return o.loggerHook.StepLogger(base, id.ShortString())
}

func (o *Orchestrator) setResult(id ActivityID, r *Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results[id] = r
}

func (o *Orchestrator) skip(ids []ActivityID, reason error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		o.results[id] = &Result{State: Skipped, Error: reason}
	}
}

// GetResult returns the result of an activity by ActivityID (thread-safe)
func (o *Orchestrator) GetResult(id ActivityID) *Result {
	o.mu.RLock()
	defer o.mu.RUnlock()

	r, ok := o.results[id]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

// GetAllResults returns all activity results (thread-safe)
func (o *Orchestrator) GetAllResults() map[ActivityID]*Result {
	o.mu.RLock()
	defer o.mu.RUnlock()

	results := make(map[ActivityID]*Result, len(o.results))
	for id, r := range o.results {
		cp := *r
		results[id] = &cp
	}
	return results
}

// StepResult pairs an activity with its result.
type StepResult struct {
	ID     ActivityID
	Result Result
}

// Results returns the results in execution order.
func (o *Orchestrator) Results() []StepResult {
	o.mu.RLock()
	defer o.mu.RUnlock()

	steps := make([]StepResult, 0, len(o.order))
	for _, id := range o.order {
		steps = append(steps, StepResult{ID: id, Result: *o.results[id]})
	}
	return steps
}
