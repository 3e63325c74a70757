package pipeline

import (
	"sync"
	"time"
)

// State is the lifecycle state of one answer attempt.
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateStopped    State = "stopped"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateDone       State = "done"
	StateError      State = "error"
)

func (s State) String() string { return string(s) }

// StateChange represents one attempt state transition.
type StateChange struct {
	Attempt   string
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// StateListener observes attempt state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// stateMachine tracks one attempt's lifecycle. At most one phase is
// active at a time, so "am I busy" is a single state read.
type stateMachine struct {
	mu           sync.RWMutex
	attempt      string
	currentState State
	listeners    []StateListener
}

func newStateMachine(attempt string) *stateMachine {
	return &stateMachine{
		attempt:      attempt,
		currentState: StateIdle,
	}
}

func (sm *stateMachine) State() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// transitionValid checks if a transition is allowed (lock held).
func (sm *stateMachine) transitionValid(from, to State) bool {
	validTransitions := map[State][]State{
		StateIdle:       {StateRecording},
		StateRecording:  {StateStopped, StateIdle, StateError},
		StateStopped:    {StateUploading, StateIdle},
		StateUploading:  {StateProcessing, StateError},
		StateProcessing: {StateDone, StateError},
		StateDone:       {StateIdle},
		StateError:      {StateIdle, StateRecording},
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return false
	}
	for _, state := range allowed {
		if state == to {
			return true
		}
	}
	return false
}

// Transition moves to a new state with validation.
func (sm *stateMachine) Transition(state State, reason string) error {
	sm.mu.Lock()

	if !sm.transitionValid(sm.currentState, state) {
		err := &InvalidTransitionError{From: sm.currentState, To: state}
		sm.mu.Unlock()
		return err
	}

	oldState := sm.currentState
	sm.currentState = state

	event := StateChange{
		Attempt:   sm.attempt,
		FromState: oldState,
		ToState:   state,
		Timestamp: time.Now(),
		Reason:    reason,
	}

	// Notify outside the lock to avoid listener deadlocks.
	listeners := make([]StateListener, len(sm.listeners))
	copy(listeners, sm.listeners)
	sm.mu.Unlock()

	for _, listener := range listeners {
		listener.OnStateChange(event)
	}
	return nil
}

// AddListener registers a listener for state change events.
func (sm *stateMachine) AddListener(listener StateListener) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.listeners = append(sm.listeners, listener)
}

// InvalidTransitionError represents a rejected state transition.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}
