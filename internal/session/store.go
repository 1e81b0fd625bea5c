// Package session provides the process-held, per-browser-session state the
// login flow reads and writes. State lives in memory only: restarting the
// process abandons every in-flight login attempt, which is acceptable because
// a login attempt is a conversation, not a durable entity.
package session

import (
	"sync"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
)

// State holds one session's login conversation and, after success, its
// established identity. All methods are safe for concurrent use; writes
// replace whole values so readers never observe a partially written identity.
type State struct {
	mu       sync.RWMutex
	attempt  *domain.LoginAttempt
	identity *domain.AuthenticatedSession
}

// Attempt returns the in-flight login attempt, if any.
func (s *State) Attempt() (domain.LoginAttempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.attempt == nil {
		return domain.LoginAttempt{}, false
	}
	return *s.attempt, true
}

// SetAttempt replaces the in-flight attempt. A second login started mid
// conversation simply overwrites the first: last write wins.
func (s *State) SetAttempt(attempt domain.LoginAttempt) {
	s.mu.Lock()
	s.attempt = &attempt
	s.mu.Unlock()
}

// ClearAttempt discards the in-flight attempt.
func (s *State) ClearAttempt() {
	s.mu.Lock()
	s.attempt = nil
	s.mu.Unlock()
}

// Identity returns the established session identity, if any.
func (s *State) Identity() (domain.AuthenticatedSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return domain.AuthenticatedSession{}, false
	}
	return *s.identity, true
}

// Establish atomically replaces the session identity and discards any
// in-flight attempt. Subsequent reads see either the previous identity or the
// new one, never a mixture.
func (s *State) Establish(identity domain.AuthenticatedSession) {
	s.mu.Lock()
	s.identity = &identity
	s.attempt = nil
	s.mu.Unlock()
}

// Reset clears both identity and attempt.
func (s *State) Reset() {
	s.mu.Lock()
	s.identity = nil
	s.attempt = nil
	s.mu.Unlock()
}

// Registry hands out State handles keyed by opaque session identifier.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*State
}

// NewRegistry constructs an empty in-memory session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*State)}
}

// Session returns the state handle for the given id, creating it on first use.
func (r *Registry) Session(id string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.sessions[id]
	if !ok {
		state = &State{}
		r.sessions[id] = state
	}
	return state
}

// Drop removes the session entirely, e.g. when the cookie expires.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len reports how many sessions are currently held. Used by health reporting
// and tests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
