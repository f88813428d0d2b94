package activity

import (
	"fmt"
	"log/slog"

	"github.com/nomis52/journeyid/workflow"
)

// StatusLine is the status writer of a single step. Every update is also
// logged, so a step without a handler still leaves a trace.
type StatusLine struct {
	id      workflow.ActivityID
	logger  *slog.Logger
	handler *StatusHandler
}

// NewStatusLine binds a status line to a step. handler may be nil.
func NewStatusLine(id workflow.ActivityID, logger *slog.Logger, handler *StatusHandler) *StatusLine {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusLine{
		id:      id,
		logger:  logger.With("step", id.ShortString()),
		handler: handler,
	}
}

// Set records a progress message.
func (sl *StatusLine) Set(status string) {
	sl.logger.Info(status)
	sl.store(status)
}

// Setf is Set with fmt.Sprintf formatting.
func (sl *StatusLine) Setf(format string, args ...any) {
	sl.Set(fmt.Sprintf(format, args...))
}

// Fail records err as the step's final status.
func (sl *StatusLine) Fail(err error) {
	sl.logger.Warn("step failed", "error", err)
	sl.store("❌ " + err.Error())
}

func (sl *StatusLine) store(status string) {
	if sl.handler != nil {
		sl.handler.Set(sl.id, status)
	}
}
