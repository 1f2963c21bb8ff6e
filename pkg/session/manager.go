package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rhuss/judgeide/pkg/debug"
	"github.com/rhuss/judgeide/pkg/judge0"
)

// Manager owns the open sessions of a process.
type Manager struct {
	runner *judge0.Runner
	langs  LanguageChecker

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager whose sessions run through runner.
func NewManager(runner *judge0.Runner, langs LanguageChecker) *Manager {
	return &Manager{
		runner:   runner,
		langs:    langs,
		sessions: make(map[string]*Session),
	}
}

// Open creates a session with a fresh ID and fires its Initialised hook.
func (m *Manager) Open(hooks Hooks) *Session {
	s := New(uuid.NewString(), m.runner, m.langs, hooks)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	debug.Log("session", "opened", "session", s.id)
	if hooks.Initialised != nil {
		hooks.Initialised(Initialised{Event: EventInitialised, SessionID: s.id})
	}
	return s
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close closes and forgets a session. Closing an unknown ID is a no-op.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
		debug.Log("session", "closed", "session", id)
	}
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
