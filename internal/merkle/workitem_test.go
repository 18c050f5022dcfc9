package merkle

import "testing"

func TestWorkItemLinearTransitions(t *testing.T) {
	w := NewWorkItem("/p", true)
	order := []State{StateValidated, StateWalking, StateHashing, StateStored, StateRecomputingAncestors, StateDone}
	for _, to := range order {
		if err := w.Transition(to); err != nil {
			t.Fatalf("Transition(%q): %v", to, err)
		}
	}
	if !w.Done() {
		t.Errorf("expected Done() true after reaching %q", StateDone)
	}
	if w.Failed() {
		t.Errorf("expected Failed() false for successful completion")
	}
}

func TestWorkItemSkipsOptionalRecomputeStep(t *testing.T) {
	w := NewWorkItem("/p", false)
	for _, to := range []State{StateValidated, StateWalking, StateHashing, StateStored, StateDone} {
		if err := w.Transition(to); err != nil {
			t.Fatalf("Transition(%q): %v", to, err)
		}
	}
}

func TestWorkItemRejectsNonLinearTransition(t *testing.T) {
	w := NewWorkItem("/p", true)
	if err := w.Transition(StateHashing); err == nil {
		t.Errorf("expected error skipping from queued directly to hashing")
	}
}

func TestWorkItemTerminalErrorFromAnyNonTerminalState(t *testing.T) {
	w := NewWorkItem("/p", true)
	if err := w.Transition(StateValidated); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if err := w.Transition(StateInvalidPath); err != nil {
		t.Fatalf("Transition to terminal error: %v", err)
	}
	if !w.Failed() {
		t.Errorf("expected Failed() true")
	}
	if err := w.Transition(StateWalking); err == nil {
		t.Errorf("expected error transitioning out of a terminal state")
	}
}
