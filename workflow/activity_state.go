package workflow

// ActivityState represents the execution state of an activity
type ActivityState int

const (
	// NotStarted indicates the activity has been added but Execute has not
	// been called on the orchestrator, or Init failed.
	NotStarted ActivityState = iota

	// Pending indicates the activity is queued behind earlier activities.
	Pending

	// Running indicates the activity is currently executing
	Running

	// Skipped indicates the activity never ran because an earlier activity
	// failed or the context was cancelled.
	Skipped

	// Completed indicates the activity has finished execution.
	// The activity may have succeeded or failed - check the Error field
	Completed
)

// String returns a human-readable representation of the ActivityState
func (s ActivityState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Skipped:
		return "skipped"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}
