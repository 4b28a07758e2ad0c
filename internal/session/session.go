// Package session keeps the signed-in user's credential and identity for the lifetime of the
// process. Nothing is persisted.
package session

import (
	"sync"

	"campus/internal/auth"
)

// Identity is what the client knows about the signed-in user.
type Identity struct {
	Username string
	Role     auth.Role
}

// Session pairs the bearer credential with the identity it was issued for.
type Session struct {
	Credential string
	Identity   Identity
}

// Store holds at most one session. Credential and identity are always set and cleared together.
type Store struct {
	mu      sync.RWMutex
	current *Session
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the current session.
func (s *Store) Set(credential string, id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &Session{Credential: credential, Identity: id}
}

// Clear returns the store to the logged-out state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Current returns the active session, or false when logged out.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}
