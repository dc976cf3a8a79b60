// Package retry tracks attempt bookkeeping for phases.
//
// Each phase gets a bounded number of attempts. The manager records every
// verdict, decides whether another attempt is allowed, and exposes its
// state as plain values for the session manifest.
package retry

import (
	"sync"
)

// PhaseState tracks the attempts made on one phase.
type PhaseState struct {
	Phase       string   `json:"phase" yaml:"phase"`
	Attempts    int      `json:"attempts" yaml:"attempts"`
	MaxAttempts int      `json:"max_attempts" yaml:"max_attempts"`
	LastReason  string   `json:"last_reason,omitempty" yaml:"last_reason,omitempty"`
	Rationales  []string `json:"rationales,omitempty" yaml:"rationales,omitempty"` // One per judged attempt
	Accepted    bool     `json:"accepted,omitempty" yaml:"accepted,omitempty"`
}

// Exhausted reports whether no further attempt is allowed.
func (s *PhaseState) Exhausted() bool {
	return !s.Accepted && s.Attempts >= s.MaxAttempts
}

// Manager manages attempt state for phases.
// It is thread-safe and can be used concurrently.
type Manager struct {
	mu     sync.RWMutex
	states map[string]*PhaseState
}

// NewManager creates a new retry manager.
func NewManager() *Manager {
	return &Manager{
		states: make(map[string]*PhaseState),
	}
}

// GetOrCreateState returns or creates attempt state for a phase.
// If the state doesn't exist, it creates one with the given maxAttempts.
func (m *Manager) GetOrCreateState(phase string, maxAttempts int) *PhaseState {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.states[phase]
	if !exists {
		state = &PhaseState{
			Phase:       phase,
			MaxAttempts: maxAttempts,
			Rationales:  make([]string, 0),
		}
		m.states[phase] = state
	}
	return state
}

// GetState returns a copy of the attempt state for a phase, or nil if not found.
func (m *Manager) GetState(phase string) *PhaseState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.states[phase]
	if !exists {
		return nil
	}
	return copyState(state)
}

// ShouldRetry returns whether another attempt may start for a phase.
func (m *Manager) ShouldRetry(phase string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.states[phase]
	if !exists {
		return false
	}
	return state.Attempts < state.MaxAttempts && !state.Accepted
}

// NextAttempt returns the 1-based number of the attempt about to start.
func (m *Manager) NextAttempt(phase string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.states[phase]
	if !exists {
		return 1
	}
	return state.Attempts + 1
}

// RecordAttempt records a judged attempt for a phase.
// An accepted attempt closes the phase; no more attempts will be allowed.
func (m *Manager) RecordAttempt(phase string, accepted bool, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, exists := m.states[phase]
	if !exists {
		return
	}

	state.Attempts++
	state.LastReason = reason
	state.Rationales = append(state.Rationales, reason)
	if accepted {
		state.Accepted = true
	}
}

// MarkAccepted closes a phase without recording an attempt. Used when a
// resumed run restores an already accepted phase.
func (m *Manager) MarkAccepted(phase string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, exists := m.states[phase]; exists {
		state.Accepted = true
	}
}

// GetFailedPhases returns the phases that have exhausted their attempts
// without being accepted.
func (m *Manager) GetFailedPhases() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var failed []string
	for phase, state := range m.states {
		if state.Exhausted() {
			failed = append(failed, phase)
		}
	}
	return failed
}

// TotalAttempts returns the number of attempts recorded across all phases.
func (m *Manager) TotalAttempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, state := range m.states {
		total += state.Attempts
	}
	return total
}

// Reset clears the attempt state for a phase.
func (m *Manager) Reset(phase string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, phase)
}

// ResetAll clears all attempt state.
func (m *Manager) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states = make(map[string]*PhaseState)
}

// GetAllStates returns a copy of all phase attempt states.
// This is useful for serialization/persistence.
func (m *Manager) GetAllStates() map[string]*PhaseState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*PhaseState, len(m.states))
	for k, v := range m.states {
		result[k] = copyState(v)
	}
	return result
}

// LoadStates loads attempt states from a map.
// This is useful for restoring from persistence.
func (m *Manager) LoadStates(states map[string]*PhaseState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states = make(map[string]*PhaseState, len(states))
	for k, v := range states {
		if v != nil {
			m.states[k] = copyState(v)
		}
	}
}

func copyState(s *PhaseState) *PhaseState {
	c := *s
	if s.Rationales != nil {
		c.Rationales = make([]string, len(s.Rationales))
		copy(c.Rationales, s.Rationales)
	}
	return &c
}
