package task

import (
	"sync"

	"github.com/nexus-agent/core/internal/coreerr"
)

// State is one node of the TaskFSM.
type State string

const (
	StatePending    State = "PENDING"
	StateReasoning  State = "REASONING"
	StatePlanning   State = "PLANNING"
	StateActing     State = "ACTING"
	StateReflecting State = "REFLECTING"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
	StateCancelled  State = "CANCELLED"
)

// IsTerminal reports whether s is a terminal (write-frozen) state.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// legalTransitions is the directed transition table from §4.2. Terminal
// states have no entry (empty = nothing legal).
var legalTransitions = map[State]map[State]bool{
	StatePending: {
		StateReasoning: true,
		StateCancelled: true,
		StateFailed:    true,
	},
	StateReasoning: {
		StatePlanning:  true,
		StateFailed:    true,
		StateCancelled: true,
	},
	StatePlanning: {
		StateActing:    true,
		StateFailed:    true,
		StateCancelled: true,
	},
	StateActing: {
		StateActing:     true, // next step
		StateReflecting: true,
		StateFailed:     true,
		StateCancelled:  true,
	},
	StateReflecting: {
		StateReasoning: true, // loop continues
		StateCompleted: true,
		StateFailed:    true,
		StateCancelled: true,
	},
}

// FSM owns one task's Context and current State. It transitions only
// within the table above; an illegal transition is a fatal per-task error
// that forces the task to FAILED.
type FSM struct {
	mu      sync.Mutex
	id      string
	state   State
	context *Context
	errKind string
	errMsg  string
}

// NewFSM constructs a task in PENDING with the given initial context.
func NewFSM(id string, ctx *Context) *FSM {
	return &FSM{id: id, state: StatePending, context: ctx}
}

// ID returns the task's unique identifier.
func (f *FSM) ID() string {
	return f.id
}

// State returns the task's current state.
func (f *FSM) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Context returns the task's mutable context. Callers outside the
// dispatcher chain for this task's events must not mutate it.
func (f *FSM) Context() *Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.context
}

// FailureInfo returns the recorded error kind/message once the task has
// transitioned to FAILED; both are empty otherwise.
func (f *FSM) FailureInfo() (kind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errKind, f.errMsg
}

// Transition moves the task from its current state to next. Terminal
// states reject every transition. An illegal transition forces the task to
// FAILED and returns an InvalidStateTransition error; a caller must still
// surface a TASK_FAILED event for it (the FSM itself does not emit).
func (f *FSM) Transition(next State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.IsTerminal() {
		return coreerr.NewInvalidStateTransition(f.id, string(f.state), string(next))
	}

	allowed := legalTransitions[f.state]
	if allowed == nil || !allowed[next] {
		err := coreerr.NewInvalidStateTransition(f.id, string(f.state), string(next))
		f.state = StateFailed
		f.errKind = "invalid_state_transition"
		f.errMsg = err.Error()
		return err
	}

	f.state = next
	return nil
}

// Fail forces the task directly to FAILED (e.g. on an LLM/tool error
// surfaced from a phase), recording kind/message for the terminal event.
func (f *FSM) Fail(kind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.IsTerminal() {
		return
	}
	f.state = StateFailed
	f.errKind = kind
	f.errMsg = message
}

// Cancel forces the task directly to CANCELLED. Idempotent on an
// already-terminal task.
func (f *FSM) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.IsTerminal() {
		return
	}
	f.state = StateCancelled
}
