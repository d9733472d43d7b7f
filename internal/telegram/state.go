package telegram

import "sync"

// AdminState tracks what input the admin panel is waiting for.
type AdminState int

const (
	AdminStateNone AdminState = iota
	AdminStateWaitDiscount
	AdminStateWaitBroadcast
)

// StateManager keeps per-user admin panel states.
type StateManager struct {
	mu     sync.RWMutex
	states map[int64]AdminState
}

// NewStateManager creates a new state manager
func NewStateManager() *StateManager {
	return &StateManager{
		states: make(map[int64]AdminState),
	}
}

// Set sets a user's state
func (sm *StateManager) Set(userID int64, state AdminState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.states[userID] = state
}

// Get returns a user's current state
func (sm *StateManager) Get(userID int64) AdminState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.states[userID]
}

// Clear removes a user's state
func (sm *StateManager) Clear(userID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.states, userID)
}
