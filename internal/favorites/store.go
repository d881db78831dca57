// Package favorites persists each identity's saved movies.
package favorites

import (
	"context"
	"time"

	"github.com/JustinTDCT/GuessTheMovie/internal/metrics"
	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

// GuestOwner scopes favorites saved without a signed-in identity.
const GuestOwner = "guest"

// Entry is a movie copied verbatim into a favorites list.
type Entry struct {
	Movie   tmdb.Movie `json:"movie"`
	AddedAt time.Time  `json:"added_at"`
}

// Store is a per-owner favorites list. Lists are newest first and hold each movie id once.
// Every operation is atomic per call.
type Store interface {
	List(ctx context.Context, owner string) ([]Entry, error)
	// Add stores movie unless its id is already present and reports whether it was added.
	Add(ctx context.Context, owner string, movie tmdb.Movie) (bool, error)
	// Remove deletes id; an absent id is not an error.
	Remove(ctx context.Context, owner string, id int) error
	Contains(ctx context.Context, owner string, id int) (bool, error)
}

// OwnerKey maps a user id to a store owner. Anonymous callers share the guest scope.
func OwnerKey(userID string) string {
	if userID == "" {
		return GuestOwner
	}
	return userID
}

// Instrumented counts operations on the wrapped store.
type Instrumented struct {
	Store
}

func (s Instrumented) List(ctx context.Context, owner string) ([]Entry, error) {
	metrics.FavoritesOps.WithLabelValues("list").Inc()
	return s.Store.List(ctx, owner)
}

func (s Instrumented) Add(ctx context.Context, owner string, movie tmdb.Movie) (bool, error) {
	added, err := s.Store.Add(ctx, owner, movie)
	switch {
	case err != nil:
		metrics.FavoritesOps.WithLabelValues("add_error").Inc()
	case added:
		metrics.FavoritesOps.WithLabelValues("add").Inc()
	default:
		metrics.FavoritesOps.WithLabelValues("add_duplicate").Inc()
	}
	return added, err
}

func (s Instrumented) Remove(ctx context.Context, owner string, id int) error {
	metrics.FavoritesOps.WithLabelValues("remove").Inc()
	return s.Store.Remove(ctx, owner, id)
}

func (s Instrumented) Contains(ctx context.Context, owner string, id int) (bool, error) {
	metrics.FavoritesOps.WithLabelValues("contains").Inc()
	return s.Store.Contains(ctx, owner, id)
}
