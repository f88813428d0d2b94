// Package workflow runs an ordered list of activities and tracks the result
// of each one.
//
// # Activity Contract
//
// Activities implement:
//
//	type Activity interface {
//	    Init() error                       // Structural validation
//	    Execute(ctx context.Context) error // Perform the work
//	}
//
// Init() is called for every activity before any activity executes. It is
// the place to check that collaborators were supplied. Execute() does the
// work; activities share data through the structs they were constructed
// with, so an activity may read what an earlier one wrote.
//
// # Execution
//
// Activities run one at a time in the order they were added. The first
// activity to return an error stops the run: it is recorded as Completed
// with its error and every later activity is marked Skipped. The context is
// checked before each activity starts, so cancelling it skips the remaining
// activities without interrupting the one already running.
//
// # Results
//
// A Result is available for every activity as soon as it is added, in the
// NotStarted state:
//
//	NotStarted -> Pending -> Running -> Completed
//	                    \-> Skipped
//
// GetAllResults and Results return copies and are safe to call while the
// orchestrator is executing.
//
// # Identification
//
// Activities are identified by ActivityID, the pair of package path and
// struct name, so two packages may each define an activity called Export.
// Only one activity of a given type may be added to an orchestrator.
package workflow
