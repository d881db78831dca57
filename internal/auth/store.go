package auth

import (
	"context"
	"sync"
	"time"
)

// UserStore persists accounts. Emails are unique and stored normalized.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// SessionStore records revoked session token ids until their tokens would have expired.
type SessionStore interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// Purge forgets revocations whose tokens have expired by now.
	Purge(ctx context.Context, now time.Time) (int, error)
}

type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return ErrEmailExists
	}
	cp := *u
	s.byID[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.GetByID(ctx, id)
}

type MemorySessionStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{revoked: make(map[string]time.Time)}
}

func (s *MemorySessionStore) Revoke(_ context.Context, jti string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = until
	return nil
}

func (s *MemorySessionStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[jti]
	return ok, nil
}

func (s *MemorySessionStore) Purge(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for jti, until := range s.revoked {
		if !until.After(now) {
			delete(s.revoked, jti)
			n++
		}
	}
	return n, nil
}
