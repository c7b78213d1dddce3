package handlers

import (
	"sync"
	"time"

	"github.com/upb/qruntime/services/session"
)

// SessionState holds the outcome of the most recent session open. It is the
// only state shared between the resolver run and the HTTP handlers.
type SessionState struct {
	mu        sync.RWMutex
	result    *session.Result
	err       error
	updatedAt time.Time
}

// NewSessionState creates an empty state.
func NewSessionState() *SessionState {
	return &SessionState{}
}

// Set records the outcome of an open. A failed open clears the previous
// result.
func (s *SessionState) Set(result *session.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	s.err = err
	s.updatedAt = time.Now().UTC()
}

// Snapshot is a copy of the state at one point in time.
type Snapshot struct {
	Result    *session.Result
	Err       error
	UpdatedAt time.Time
}

// Opened reports whether an open has completed, successfully or not.
func (s Snapshot) Opened() bool {
	return s.Result != nil || s.Err != nil
}

// Get returns the last recorded outcome.
func (s *SessionState) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Result: s.result, Err: s.err, UpdatedAt: s.updatedAt}
}
