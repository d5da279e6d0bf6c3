package auth

import (
	"sync"

	"github.com/gestor-crm/gestor/internal/rbac"
)

// State is the authentication state of a Session.
type State int

const (
	StateRestoring State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session holds the current identity and the restore flag. Only the Manager
// that owns it writes to it; every other component reads.
type Session struct {
	mu        sync.RWMutex
	identity  *Identity
	restoring bool
	pending   bool
	settled   bool // an operation has published its outcome
	restored  chan struct{}
}

// Snapshot is a consistent read of a Session.
type Snapshot struct {
	State     string    `json:"state"`
	Restoring bool      `json:"restoring"`
	Pending   bool      `json:"pending"`
	Identity  *Identity `json:"identity,omitempty"`
}

func newSession() *Session {
	return &Session{restoring: true, restored: make(chan struct{})}
}

// Current returns a copy of the current identity.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return s.identity.Clone(), true
}

// Principal implements rbac.SessionView.
func (s *Session) Principal() (rbac.Principal, bool) {
	identity, ok := s.Current()
	if !ok {
		return nil, false
	}
	return &identity, true
}

// Restoring reports whether the start-up restore has not settled yet.
func (s *Session) Restoring() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restoring
}

// Pending reports whether a login, register or logout is in flight.
func (s *Session) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// Loading implements rbac.SessionView.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restoring || s.pending
}

// State returns the authentication state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Snapshot returns the state, flags and identity read under one lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{State: s.stateLocked().String(), Restoring: s.restoring, Pending: s.pending}
	if s.identity != nil {
		identity := s.identity.Clone()
		snap.Identity = &identity
	}
	return snap
}

// Restored is closed once the start-up restore has settled.
func (s *Session) Restored() <-chan struct{} {
	return s.restored
}

func (s *Session) stateLocked() State {
	switch {
	case s.restoring:
		return StateRestoring
	case s.identity != nil:
		return StateAuthenticated
	default:
		return StateAnonymous
	}
}

func (s *Session) beginPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = true
}

// endPending clears the pending flag and leaves the identity unchanged.
func (s *Session) endPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false
}

// settle publishes identity (nil for anonymous) and clears the pending flag
// in the same critical section.
func (s *Session) settle(identity *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.pending = false
	s.settled = true
}

// finishRestore publishes the restored identity and clears the restore flag.
// An outcome already published by an operation that ran first is kept. It must
// be called exactly once.
func (s *Session) finishRestore(identity *Identity) {
	s.mu.Lock()
	if !s.settled {
		s.identity = identity
	}
	s.restoring = false
	s.mu.Unlock()
	close(s.restored)
}
