package activation

import (
	"fmt"
	"sync"
)

// Phase is the lifecycle state of one activation.
type Phase string

const (
	PhasePending            Phase = "PENDING"
	PhaseValidating         Phase = "VALIDATING"
	PhaseMinting            Phase = "MINTING"
	PhaseExternalValidation Phase = "EXTERNAL_VALIDATION"
	PhaseExporting          Phase = "EXPORTING"
	PhaseComplete           Phase = "COMPLETE"
	PhaseFailed             Phase = "FAILED"
)

var nextPhase = map[Phase]Phase{
	PhasePending:            PhaseValidating,
	PhaseValidating:         PhaseMinting,
	PhaseMinting:            PhaseExternalValidation,
	PhaseExternalValidation: PhaseExporting,
	PhaseExporting:          PhaseComplete,
}

// CanTransition reports whether an activation in phase p may move to next.
// Phases advance one at a time; any phase except COMPLETE may fail, and
// FAILED is final.
func (p Phase) CanTransition(next Phase) bool {
	if next == PhaseFailed {
		return p != PhaseComplete && p != PhaseFailed
	}
	return nextPhase[p] == next
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// phaseTracker holds the current phase of a run.
type phaseTracker struct {
	mu       sync.RWMutex
	current  Phase
	failedIn Phase
	onChange func(from, to Phase)
}

func newPhaseTracker(onChange func(from, to Phase)) *phaseTracker {
	return &phaseTracker{current: PhasePending, onChange: onChange}
}

// advance moves to next, returning an error for illegal transitions.
func (t *phaseTracker) advance(next Phase) error {
	t.mu.Lock()
	from := t.current
	if !from.CanTransition(next) {
		t.mu.Unlock()
		return fmt.Errorf("illegal phase transition %s -> %s", from, next)
	}
	t.current = next
	if next == PhaseFailed {
		t.failedIn = from
	}
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(from, next)
	}
	return nil
}

// fail moves to FAILED unless the run is already terminal.
func (t *phaseTracker) fail() {
	_ = t.advance(PhaseFailed)
}

func (t *phaseTracker) get() Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// failedPhase returns the phase the run was in when it failed.
func (t *phaseTracker) failedPhase() Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.failedIn
}
