package workflow

import (
	"context"
	"sync"
	"time"
)

type sessionEntry struct {
	controller *Controller
	lastSeen   time.Time
}

// Sessions keeps one controller per browser session in memory.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	factory  func() *Controller
	now      func() time.Time
}

func NewSessions(factory func() *Controller) *Sessions {
	return &Sessions{
		sessions: make(map[string]*sessionEntry),
		factory:  factory,
		now:      time.Now,
	}
}

// Get returns the controller for id, creating a fresh one on first use. The
// lookup and the lastSeen refresh happen under one lock so Prune cannot drop
// an entry that is being handed out.
func (s *Sessions) Get(id string) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	entry, ok := s.sessions[id]
	if !ok {
		entry = &sessionEntry{controller: s.factory()}
		s.sessions[id] = entry
	}
	entry.lastSeen = now
	return entry.controller
}

func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune forgets sessions idle for longer than maxIdle and reports how many
// were removed.
func (s *Sessions) Prune(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor prunes idle sessions every interval until ctx is done.
func (s *Sessions) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune(maxIdle)
		}
	}
}
