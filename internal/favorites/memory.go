package favorites

import (
	"context"
	"sync"
	"time"

	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

// MemoryStore keeps favorites in process memory. Lists are lost on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	lists map[string][]Entry // newest first
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists: make(map[string][]Entry),
		now:   time.Now,
	}
}

func (s *MemoryStore) List(_ context.Context, owner string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.lists[owner]))
	copy(out, s.lists[owner])
	return out, nil
}

func (s *MemoryStore) Add(_ context.Context, owner string, movie tmdb.Movie) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[owner]
	if indexOf(list, movie.ID) >= 0 {
		return false, nil
	}
	entry := Entry{Movie: movie, AddedAt: s.now().UTC()}
	s.lists[owner] = append([]Entry{entry}, list...)
	return true, nil
}

func (s *MemoryStore) Remove(_ context.Context, owner string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[owner]
	i := indexOf(list, id)
	if i < 0 {
		return nil
	}
	s.lists[owner] = append(list[:i:i], list[i+1:]...)
	return nil
}

func (s *MemoryStore) Contains(_ context.Context, owner string, id int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.lists[owner], id) >= 0, nil
}

func indexOf(list []Entry, id int) int {
	for i, e := range list {
		if e.Movie.ID == id {
			return i
		}
	}
	return -1
}
