package favorites

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newMemory() Store {
	s := NewMemoryStore()
	s.now = (&clock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}).now
	return s
}

func newRedis(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := NewRedisStore(rdb)
	s.now = (&clock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}).now
	return s
}

// backends runs the same behavioural checks against each store that needs no database.
func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory":       newMemory(),
		"redis":        newRedis(t),
		"instrumented": Instrumented{Store: newMemory()},
	}
}

func movie(id int, title string) tmdb.Movie {
	return tmdb.Movie{ID: id, Title: title, BackdropPath: "/b.jpg", GenreIDs: []int{18}}
}

func TestStore_AddIsIdempotent(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			added, err := s.Add(ctx, "u1", movie(550, "Fight Club"))
			require.NoError(t, err)
			assert.True(t, added)

			added, err = s.Add(ctx, "u1", movie(550, "Fight Club"))
			require.NoError(t, err)
			assert.False(t, added)

			list, err := s.List(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, movie(550, "Fight Club"), list[0].Movie)
			assert.False(t, list[0].AddedAt.IsZero())
		})
	}
}

func TestStore_NewestFirst(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, m := range []tmdb.Movie{movie(1, "A"), movie(2, "B"), movie(3, "C")} {
				_, err := s.Add(ctx, "u1", m)
				require.NoError(t, err)
			}
			list, err := s.List(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, []int{3, 2, 1}, []int{list[0].Movie.ID, list[1].Movie.ID, list[2].Movie.ID})
		})
	}
}

func TestStore_RemoveAndContains(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Add(ctx, "u1", movie(1, "A"))
			require.NoError(t, err)

			ok, err := s.Contains(ctx, "u1", 1)
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, s.Remove(ctx, "u1", 42), "absent id is a no-op")
			require.NoError(t, s.Remove(ctx, "u1", 1))

			ok, err = s.Contains(ctx, "u1", 1)
			require.NoError(t, err)
			assert.False(t, ok)

			list, err := s.List(ctx, "u1")
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestStore_OwnersAreIsolated(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Add(ctx, "u1", movie(1, "A"))
			require.NoError(t, err)
			_, err = s.Add(ctx, GuestOwner, movie(2, "B"))
			require.NoError(t, err)

			ok, err := s.Contains(ctx, "u1", 2)
			require.NoError(t, err)
			assert.False(t, ok)

			list, err := s.List(ctx, GuestOwner)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, 2, list[0].Movie.ID)
		})
	}
}

func TestOwnerKey(t *testing.T) {
	assert.Equal(t, GuestOwner, OwnerKey(""))
	assert.Equal(t, "9f1c", OwnerKey("9f1c"))
}

func TestMemoryStore_ListIsACopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.Add(ctx, "u1", movie(1, "A"))
	require.NoError(t, err)

	list, _ := s.List(ctx, "u1")
	list[0].Movie.Title = "changed"

	again, _ := s.List(ctx, "u1")
	assert.Equal(t, "A", again[0].Movie.Title)
}
