// Package phase drives one phase at a time through the bounded
// produce -> review -> judge cycle and records accepted outputs.
//
// Every attempt moves through a formal state machine whose transitions are
// validated against [ValidTransitions]. A rejected attempt loops back to
// producing with the rejected artifact and its review as revision context;
// an accepted attempt is the only one whose artifact becomes the phase output.
package phase

import (
	"fmt"
	"slices"
	"sync"
	"time"

	crewerrors "github.com/Iron-Ham/crewpm/internal/errors"
)

// State is the position of a phase in its attempt cycle.
type State string

const (
	// StatePending is the state before the first attempt starts.
	StatePending State = "pending"

	// StateProducing means the producer is generating an artifact.
	StateProducing State = "producing"

	// StateReviewing means the reviewer is assessing the artifact.
	StateReviewing State = "reviewing"

	// StateJudging means the PM verdict is being rendered.
	StateJudging State = "judging"

	// StateAccepted is terminal: the latest artifact is the phase output.
	StateAccepted State = "accepted"

	// StateRejected means the latest attempt failed the verdict.
	StateRejected State = "rejected"

	// StateFailed is terminal: the phase was aborted.
	StateFailed State = "failed"
)

// AllStates returns all defined states in cycle order.
func AllStates() []State {
	return []State{
		StatePending,
		StateProducing,
		StateReviewing,
		StateJudging,
		StateAccepted,
		StateRejected,
		StateFailed,
	}
}

// IsTerminal returns true if the state is Accepted or Failed.
func (s State) IsTerminal() bool {
	return s == StateAccepted || s == StateFailed
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// ValidTransitions defines which state transitions are allowed.
var ValidTransitions = map[State][]State{
	StatePending: {
		StateProducing,
		StateFailed,
	},
	StateProducing: {
		StateReviewing,
		StateFailed,
	},
	StateReviewing: {
		StateJudging,
		StateFailed,
	},
	StateJudging: {
		StateAccepted,
		StateRejected,
		StateFailed,
	},
	StateRejected: {
		StateProducing, // Next attempt with revision context
		StateFailed,    // Attempts exhausted or canceled
	},

	// Terminal states: no transitions out
	StateAccepted: {},
	StateFailed:   {},
}

// CanTransition checks whether a transition is valid according to ValidTransitions.
func CanTransition(from, to State) bool {
	validTargets, exists := ValidTransitions[from]
	if !exists {
		return false
	}
	return slices.Contains(validTargets, to)
}

// Transition captures a single state change.
type Transition struct {
	From      State     `json:"from" yaml:"from"`
	To        State     `json:"to" yaml:"to"`
	Attempt   int       `json:"attempt" yaml:"attempt"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Reason    string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// ChangeCallback is called after every successful transition.
type ChangeCallback func(t Transition)

// Machine is the attempt state machine for one phase. It is safe for concurrent use.
type Machine struct {
	mu        sync.RWMutex
	current   State
	attempt   int
	history   []Transition
	callbacks []ChangeCallback
}

// NewMachine creates a machine in StatePending.
func NewMachine() *Machine {
	return &Machine{current: StatePending}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Attempt returns the 1-based number of the current attempt, or 0 before the first.
func (m *Machine) Attempt() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempt
}

// OnChange registers a callback invoked after each transition, in registration order.
func (m *Machine) OnChange(cb ChangeCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// TransitionTo moves to the target state. Entering StateProducing starts a
// new attempt. Invalid transitions return ErrInvalidTransition.
func (m *Machine) TransitionTo(to State, reason string) error {
	m.mu.Lock()
	from := m.current
	if !CanTransition(from, to) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", crewerrors.ErrInvalidTransition, from, to)
	}
	if to == StateProducing {
		m.attempt++
	}
	t := Transition{
		From:      from,
		To:        to,
		Attempt:   m.attempt,
		Timestamp: time.Now(),
		Reason:    reason,
	}
	m.current = to
	m.history = append(m.history, t)
	callbacks := slices.Clone(m.callbacks)
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(t)
	}
	return nil
}

// History returns a copy of all transitions in order.
func (m *Machine) History() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.history)
}
