package domain

import (
	"sort"
	"sync"
	"time"
)

// Session is the per-connection state: which identities the connection
// has announced. A fresh session is unbound.
type Session struct {
	ID           string
	RemoteAddr   string
	CreatedAt    time.Time
	LastActiveAt time.Time

	identities map[string]struct{}
	mu         sync.RWMutex
}

func NewSession(id, remoteAddr string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		RemoteAddr:   remoteAddr,
		CreatedAt:    now,
		LastActiveAt: now,
		identities:   make(map[string]struct{}),
	}
}

// Bind adds identity to the session and reports whether it was new.
func (s *Session) Bind(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
	if _, ok := s.identities[identity]; ok {
		return false
	}
	s.identities[identity] = struct{}{}
	return true
}

// Unbind drops identity from the session.
func (s *Session) Unbind(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.identities, identity)
}

// Clear drops every binding and returns what was bound.
func (s *Session) Clear() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := sortedKeys(s.identities)
	s.identities = make(map[string]struct{})
	return out
}

func (s *Session) IsBound() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities) > 0
}

func (s *Session) IsBoundTo(identity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.identities[identity]
	return ok
}

// Identities returns the bound identities in sorted order.
func (s *Session) Identities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.identities)
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
