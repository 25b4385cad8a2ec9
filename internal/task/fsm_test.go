package task

import "testing"

func TestFSM_LegalTransitionChain(t *testing.T) {
	f := NewFSM("t1", &Context{InputText: "hi"})

	chain := []State{StateReasoning, StatePlanning, StateActing, StateReflecting, StateCompleted}
	for _, next := range chain {
		if err := f.Transition(next); err != nil {
			t.Fatalf("Transition(%s) from %s: unexpected error: %v", next, f.State(), err)
		}
	}
	if f.State() != StateCompleted {
		t.Errorf("final state = %s, want %s", f.State(), StateCompleted)
	}
}

func TestFSM_ActingSelfLoop(t *testing.T) {
	f := NewFSM("t1", &Context{})
	mustTransition(t, f, StateReasoning)
	mustTransition(t, f, StatePlanning)
	mustTransition(t, f, StateActing)
	if err := f.Transition(StateActing); err != nil {
		t.Fatalf("ACTING -> ACTING (next step) should be legal: %v", err)
	}
}

func TestFSM_ReflectingLoopsBackToReasoning(t *testing.T) {
	f := NewFSM("t1", &Context{})
	mustTransition(t, f, StateReasoning)
	mustTransition(t, f, StatePlanning)
	mustTransition(t, f, StateActing)
	mustTransition(t, f, StateReflecting)
	if err := f.Transition(StateReasoning); err != nil {
		t.Fatalf("REFLECTING -> REASONING should be legal: %v", err)
	}
}

func TestFSM_IllegalTransitionForcesFailed(t *testing.T) {
	f := NewFSM("t1", &Context{})
	// PENDING -> ACTING is not in the table.
	err := f.Transition(StateActing)
	if err == nil {
		t.Fatal("expected an error for an illegal transition")
	}
	if f.State() != StateFailed {
		t.Errorf("state after illegal transition = %s, want %s", f.State(), StateFailed)
	}
	kind, msg := f.FailureInfo()
	if kind != "invalid_state_transition" {
		t.Errorf("FailureInfo kind = %q, want invalid_state_transition", kind)
	}
	if msg == "" {
		t.Error("FailureInfo message is empty")
	}
}

func TestFSM_TerminalStatesAreWriteFrozen(t *testing.T) {
	f := NewFSM("t1", &Context{})
	mustTransition(t, f, StateCancelled)

	if err := f.Transition(StateReasoning); err == nil {
		t.Fatal("expected transitioning out of a terminal state to fail")
	}
	if f.State() != StateCancelled {
		t.Errorf("state mutated after terminal, got %s", f.State())
	}
}

func TestFSM_CancelIdempotentAfterTerminal(t *testing.T) {
	f := NewFSM("t1", &Context{})
	mustTransition(t, f, StateReasoning)
	mustTransition(t, f, StateFailed)
	f.Cancel() // must not override an existing terminal state
	if f.State() != StateFailed {
		t.Errorf("Cancel() overwrote terminal state: got %s, want %s", f.State(), StateFailed)
	}
}

func mustTransition(t *testing.T, f *FSM, next State) {
	t.Helper()
	if err := f.Transition(next); err != nil {
		t.Fatalf("Transition(%s) from %s: unexpected error: %v", next, f.State(), err)
	}
}
