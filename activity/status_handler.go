package activity

import (
	"sync"

	"github.com/nomis52/journeyid/workflow"
)

// StatusHandler holds the latest status of every step of one activation.
// The runner reads it while the activation is in flight.
type StatusHandler struct {
	mu       sync.RWMutex
	statuses map[workflow.ActivityID]string
}

// NewStatusHandler creates an empty status handler.
func NewStatusHandler() *StatusHandler {
	return &StatusHandler{statuses: map[workflow.ActivityID]string{}}
}

// Set replaces the status of a step.
func (sh *StatusHandler) Set(id workflow.ActivityID, status string) {
	sh.mu.Lock()
	sh.statuses[id] = status
	sh.mu.Unlock()
}

// Get returns the status of a step, or "" if it never reported one.
func (sh *StatusHandler) Get(id workflow.ActivityID) string {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.statuses[id]
}

// All returns a copy keyed by step id.
func (sh *StatusHandler) All() map[workflow.ActivityID]string {
	return collect(sh, func(id workflow.ActivityID) workflow.ActivityID { return id })
}

// Snapshot returns a copy keyed by the short step name, e.g.
// "activation.MintEntries".
func (sh *StatusHandler) Snapshot() map[string]string {
	return collect(sh, workflow.ActivityID.ShortString)
}

func collect[K comparable](sh *StatusHandler, key func(workflow.ActivityID) K) map[K]string {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	out := make(map[K]string, len(sh.statuses))
	for id, status := range sh.statuses {
		out[key(id)] = status
	}
	return out
}
