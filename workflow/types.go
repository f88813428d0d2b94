package workflow

import (
	"context"
	"time"
)

// Activity is a single step of a workflow.
type Activity interface {
	// Init validates that the activity was constructed correctly. It is
	// called for every activity before any of them execute.
	Init() error

	// Execute performs the activity's work. Return nil for success.
	Execute(ctx context.Context) error
}

// Result contains the outcome of an activity.
type Result struct {
	// State is the current execution state.
	State ActivityState

	// Error is the error returned by Execute, or the reason the activity
	// was skipped.
	Error error

	StartTime time.Time
	EndTime   time.Time
}

// IsSuccess returns true if the activity ran and returned nil.
func (r *Result) IsSuccess() bool {
	return r.State == Completed && r.Error == nil
}

// Duration returns how long the activity ran, or zero if it has not finished.
func (r *Result) Duration() time.Duration {
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
