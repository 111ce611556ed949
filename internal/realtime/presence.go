package realtime

import (
	"sort"
	"sync"
)

// PresenceRegistry maps each online user to its single live connection.
// A later registration for the same user replaces the earlier connection.
type PresenceRegistry struct {
	mu     sync.RWMutex
	byUser map[string]string // user -> connection
	byConn map[string]string // connection -> user
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// Register binds userID to connID. A connection already bound to another
// user is rebound; the user's previous connection loses its entry.
func (p *PresenceRegistry) Register(userID, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prevUser, ok := p.byConn[connID]; ok && prevUser != userID {
		if p.byUser[prevUser] == connID {
			delete(p.byUser, prevUser)
		}
	}
	if prevConn, ok := p.byUser[userID]; ok && prevConn != connID {
		delete(p.byConn, prevConn)
	}
	p.byUser[userID] = connID
	p.byConn[connID] = userID
}

// Unregister drops the entry held by connID, if any.
func (p *PresenceRegistry) Unregister(connID string) (userID string, removed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.byConn[connID]
	if !ok {
		return "", false
	}
	delete(p.byConn, connID)
	if p.byUser[userID] == connID {
		delete(p.byUser, userID)
	}
	return userID, true
}

// List returns the online user ids, sorted.
func (p *PresenceRegistry) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]string, 0, len(p.byUser))
	for u := range p.byUser {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

func (p *PresenceRegistry) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byUser[userID]
	return ok
}

// ConnectionOf returns the live connection id for userID.
func (p *PresenceRegistry) ConnectionOf(userID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.byUser[userID]
	return c, ok
}

// Snapshot copies the user -> connection table.
func (p *PresenceRegistry) Snapshot() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]string, len(p.byUser))
	for u, c := range p.byUser {
		out[u] = c
	}
	return out
}
