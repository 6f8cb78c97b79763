package domain

import (
	"fmt"
	"sync"
)

// SessionTable is the single source of truth for which connection is in which room.
type SessionTable struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewSessionTable() *SessionTable {
	return &SessionTable{
		sessions: make(map[string]Session),
	}
}

func (t *SessionTable) Create(connectionID, username, roomID, remote string) (Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.sessions[connectionID]; exists {
		return Session{}, fmt.Errorf("create %s: %w", connectionID, ErrDuplicateSession)
	}
	session := NewSession(connectionID, username, roomID, remote)
	t.sessions[connectionID] = session
	return session, nil
}

func (t *SessionTable) Get(connectionID string) (Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	session, exists := t.sessions[connectionID]
	return session, exists
}

func (t *SessionTable) Username(connectionID string) (string, bool) {
	session, exists := t.Get(connectionID)
	return session.Username, exists
}

func (t *SessionTable) UpdateRoom(connectionID, roomID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, exists := t.sessions[connectionID]
	if !exists {
		return fmt.Errorf("update room of %s: %w", connectionID, ErrSessionNotFound)
	}
	session.RoomID = roomID
	t.sessions[connectionID] = session
	return nil
}

// Delete removes the session and reports what was removed. Deleting an absent
// session is a no-op.
func (t *SessionTable) Delete(connectionID string) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, exists := t.sessions[connectionID]
	if exists {
		delete(t.sessions, connectionID)
	}
	return session, exists
}

func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.sessions)
}
