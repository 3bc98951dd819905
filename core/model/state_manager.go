package model

import (
	"fmt"
	"sync"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// Phase is a training state.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseRunning
	PhaseConverged
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseRunning:
		return "running"
	case PhaseConverged:
		return "converged"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further transition is allowed.
func (p Phase) Terminal() bool {
	return p == PhaseConverged || p == PhaseFailed
}

// PhaseTracker tracks the training state machine
//
//	Init -> RunningEpoch(1) -> ... -> RunningEpoch(n) -> Converged | Failed
//
// in a thread-safe manner so metrics and logs can read it while the
// orchestrator advances it.
type PhaseTracker struct {
	mu     sync.RWMutex
	phase  Phase
	epoch  int
	reason string
	err    error
}

// NewPhaseTracker creates a tracker in PhaseInit.
func NewPhaseTracker() *PhaseTracker {
	return &PhaseTracker{phase: PhaseInit}
}

// BeginEpoch moves to RunningEpoch(n). Epochs must start at 1 and advance by
// exactly one.
func (t *PhaseTracker) BeginEpoch(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase.Terminal() {
		return errors.NewValueError("PhaseTracker.BeginEpoch", "training already "+t.phase.String())
	}
	if n != t.epoch+1 {
		return errors.NewValueError("PhaseTracker.BeginEpoch",
			fmt.Sprintf("epoch %d cannot follow epoch %d", n, t.epoch))
	}
	t.phase = PhaseRunning
	t.epoch = n
	return nil
}

// Converge moves to PhaseConverged with the stop reason.
func (t *PhaseTracker) Converge(reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != PhaseRunning {
		return errors.NewValueError("PhaseTracker.Converge", "cannot converge from "+t.phase.String())
	}
	t.phase = PhaseConverged
	t.reason = reason
	return nil
}

// Fail moves to PhaseFailed. Failing twice keeps the first error.
func (t *PhaseTracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == PhaseFailed {
		return
	}
	t.phase = PhaseFailed
	t.err = err
}

// Phase returns the current phase.
func (t *PhaseTracker) Phase() Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.phase
}

// Epoch returns the last epoch started.
func (t *PhaseTracker) Epoch() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.epoch
}

// Err returns the failure cause, if any.
func (t *PhaseTracker) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// IsFitted reports whether training converged.
func (t *PhaseTracker) IsFitted() bool {
	return t.Phase() == PhaseConverged
}

// RequireFitted returns NotFittedError unless training converged.
func (t *PhaseTracker) RequireFitted(method string) error {
	if !t.IsFitted() {
		return errors.NewNotFittedError("regression", method)
	}
	return nil
}

// PhaseState is a point-in-time copy of the tracker.
type PhaseState struct {
	Phase  string `json:"phase"`
	Epoch  int    `json:"epoch"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// GetState returns the current state.
func (t *PhaseTracker) GetState() PhaseState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := PhaseState{Phase: t.phase.String(), Epoch: t.epoch, Reason: t.reason}
	if t.err != nil {
		s.Error = t.err.Error()
	}
	return s
}
