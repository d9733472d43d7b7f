package workflow

import (
	"sync"

	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/audio"
	"github.com/abdulAziz-Al-ILM/AtomicAudioConvertorBot/internal/metrics"
)

// State is a conversion session's position in the workflow.
type State int

const (
	StateIdle State = iota
	StateAwaitingArtifact
	StateValidating
	StateAwaitingChoice
	StateProducing
	StateDelivering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingArtifact:
		return "awaiting_artifact"
	case StateValidating:
		return "validating"
	case StateAwaitingChoice:
		return "awaiting_choice"
	case StateProducing:
		return "producing"
	case StateDelivering:
		return "delivering"
	}
	return "unknown"
}

// Session is the live per-user instance of the conversion state machine.
// At most one exists per user.
type Session struct {
	State      State
	ScratchDir string
	InputPath  string
	Format     audio.Format
}

// Sessions keys live sessions by user id. State transitions go through
// the manager so concurrent events for one user cannot interleave.
type Sessions struct {
	mu sync.Mutex
	m  map[int64]*Session
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{m: make(map[int64]*Session)}
}

// Get returns a copy of the user's session, or a zero session in StateIdle.
func (s *Sessions) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.m[userID]; ok {
		return *sess
	}
	return Session{State: StateIdle}
}

// Begin replaces any prior session with a fresh one in StateAwaitingArtifact
// and returns the prior session so its artifacts can be discarded.
func (s *Sessions) Begin(userID int64) (prior Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.m[userID]; ok {
		prior = *old
	} else {
		prior = Session{State: StateIdle}
		metrics.ActiveSessions.Inc()
	}

	s.m[userID] = &Session{State: StateAwaitingArtifact}
	return prior
}

// Transition moves the user's session from the expected state to next and
// returns the session snapshot. It reports false when the session is absent
// or in a different state, in which case nothing changes.
func (s *Sessions) Transition(userID int64, from, to State) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.m[userID]
	if !ok || sess.State != from {
		return Session{}, false
	}

	sess.State = to
	return *sess, true
}

// Update mutates the session under the lock.
func (s *Sessions) Update(userID int64, fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.m[userID]; ok {
		fn(sess)
	}
}

// End removes the user's session, returning the final snapshot.
func (s *Sessions) End(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.m[userID]
	if !ok {
		return Session{}, false
	}

	delete(s.m, userID)
	metrics.ActiveSessions.Dec()
	return *sess, true
}
