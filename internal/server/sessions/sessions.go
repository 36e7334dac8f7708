// Package sessions tracks the characters that are currently in the world,
// so that deleting an account can disconnect them first.
package sessions

import (
	"sync"
)

// Session is the connection of one online player.
type Session interface {
	// Kick closes the connection.
	Kick(reason string)
	// LogoutPlayer removes the character from the world, optionally
	// saving it first.
	LogoutPlayer(save bool)
}

// Registry finds the session that currently controls a character.
type Registry interface {
	FindPlayer(guid uint32) (Session, bool)
}

// Memory is an in-process Registry.
type Memory struct {
	mu       sync.RWMutex
	sessions map[uint32]Session
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[uint32]Session)}
}

// Add registers s as the session of character guid, replacing any earlier one.
func (m *Memory) Add(guid uint32, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[guid] = s
}

func (m *Memory) Remove(guid uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, guid)
}

func (m *Memory) FindPlayer(guid uint32) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[guid]
	return s, ok
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LocalSession is a Session that only records what happened to it and
// drops itself from its registry on logout.
type LocalSession struct {
	registry *Memory
	guid     uint32

	mu         sync.Mutex
	kicked     string
	loggedOut  bool
	savedOnOut bool
}

// Join creates a LocalSession for guid and registers it.
func (m *Memory) Join(guid uint32) *LocalSession {
	s := &LocalSession{registry: m, guid: guid}
	m.Add(guid, s)
	return s
}

func (s *LocalSession) Kick(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kicked = reason
}

func (s *LocalSession) LogoutPlayer(save bool) {
	s.mu.Lock()
	s.loggedOut = true
	s.savedOnOut = save
	s.mu.Unlock()

	s.registry.Remove(s.guid)
}

// State reports the kick reason (empty when not kicked) and whether the
// player was logged out and saved.
func (s *LocalSession) State() (kickReason string, loggedOut, saved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kicked, s.loggedOut, s.savedOnOut
}
