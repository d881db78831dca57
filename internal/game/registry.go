package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/GuessTheMovie/internal/metrics"
)

var ErrSessionNotFound = errors.New("game session not found")

// Session is one player screen: a machine plus bookkeeping.
type Session struct {
	ID        string
	Machine   *Machine
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry owns the in-memory game sessions. Sessions are never shared across players.
type Registry struct {
	source RoundSource
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(source RoundSource) *Registry {
	return &Registry{
		source:   source,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session in the loading state. The caller starts the first Load.
func (r *Registry) Create() *Session {
	now := r.now()
	s := &Session{
		ID:        uuid.NewString(),
		Machine:   NewMachine(r.source),
		CreatedAt: now,
		lastSeen:  now,
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return s
}

// Get returns the session and marks it active.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(r.now())
	return s, nil
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	if ok {
		s.Machine.Close()
	}
	metrics.ActiveSessions.Set(float64(n))
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than idle and returns how many were removed.
// A session with live subscribers counts as active and has its activity refreshed.
func (r *Registry) Sweep(_ context.Context, idle time.Duration) int {
	now := r.now()
	cutoff := now.Add(-idle)
	var stale []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.Machine.Subscribers() > 0 {
			s.touch(now)
			continue
		}
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range stale {
		s.Machine.Close()
	}
	metrics.ActiveSessions.Set(float64(n))
	return len(stale)
}
