package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

// RedisStore keeps each owner's entries in a hash (id -> entry JSON) and their
// order in a sorted set scored by the time they were added. Writes touch both
// keys inside one MULTI block.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

func entriesKey(owner string) string { return "favorites:" + owner }
func orderKey(owner string) string   { return "favorites:" + owner + ":order" }

func (s *RedisStore) List(ctx context.Context, owner string) ([]Entry, error) {
	ids, err := s.rdb.ZRevRange(ctx, orderKey(owner), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	vals, err := s.rdb.HMGet(ctx, entriesKey(owner), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	out := make([]Entry, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode favorite: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisStore) Add(ctx context.Context, owner string, movie tmdb.Movie) (bool, error) {
	now := s.now().UTC()
	raw, err := json.Marshal(Entry{Movie: movie, AddedAt: now})
	if err != nil {
		return false, fmt.Errorf("encode favorite: %w", err)
	}
	field := strconv.Itoa(movie.ID)

	var set *redis.BoolCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		set = pipe.HSetNX(ctx, entriesKey(owner), field, raw)
		pipe.ZAddNX(ctx, orderKey(owner), redis.Z{Score: float64(now.UnixNano()), Member: field})
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return set.Val(), nil
}

func (s *RedisStore) Remove(ctx context.Context, owner string, id int) error {
	field := strconv.Itoa(id)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, entriesKey(owner), field)
		pipe.ZRem(ctx, orderKey(owner), field)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func (s *RedisStore) Contains(ctx context.Context, owner string, id int) (bool, error) {
	ok, err := s.rdb.HExists(ctx, entriesKey(owner), strconv.Itoa(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return ok, nil
}
