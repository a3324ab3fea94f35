package session

import (
	"sync"

	"github.com/google/uuid"
)

// Manager tracks the live session per (exam, user). A student opening a
// second tab gets the same session back instead of a second attempt.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session registry.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

func key(examID, userID uuid.UUID) string {
	return examID.String() + ":" + userID.String()
}

// Get returns the live session for the pair, dropping terminated ones.
func (m *Manager) Get(examID, userID uuid.UUID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(examID, userID)
	s, ok := m.sessions[k]
	if !ok {
		return nil
	}
	if s.Phase() == PhaseTerminated {
		delete(m.sessions, k)
		return nil
	}
	return s
}

// Put registers a live session.
func (m *Manager) Put(examID, userID uuid.UUID, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key(examID, userID)] = s
}

// Remove drops a session from the registry.
func (m *Manager) Remove(examID, userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key(examID, userID))
}
