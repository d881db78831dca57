package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/JustinTDCT/GuessTheMovie/internal/logging"
	"github.com/JustinTDCT/GuessTheMovie/internal/metrics"
)

const cachePrefix = "gtm:tmdb:"

// CachedCatalog keeps the genre list and first listing pages in Redis.
// Cache failures are logged and bypassed; upstream errors are never cached.
type CachedCatalog struct {
	Catalog
	rdb        *redis.Client
	genreTTL   time.Duration
	listingTTL time.Duration
	log        *slog.Logger
}

func NewCachedCatalog(inner Catalog, rdb *redis.Client, genreTTL, listingTTL time.Duration) *CachedCatalog {
	return &CachedCatalog{
		Catalog:    inner,
		rdb:        rdb,
		genreTTL:   genreTTL,
		listingTTL: listingTTL,
		log:        logging.Component("tmdb-cache"),
	}
}

func (c *CachedCatalog) ListGenres(ctx context.Context) (Genres, error) {
	var out Genres
	key := cacheKey("genres")
	if c.lookup(ctx, "genres", key, &out) {
		return out, nil
	}
	out, err := c.Catalog.ListGenres(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, out, c.genreTTL)
	return out, nil
}

// WarmGenres refetches the genre list and replaces the cached copy.
func (c *CachedCatalog) WarmGenres(ctx context.Context) (int, error) {
	out, err := c.Catalog.ListGenres(ctx)
	if err != nil {
		return 0, err
	}
	c.store(ctx, cacheKey("genres"), out, c.genreTTL)
	return len(out), nil
}

func (c *CachedCatalog) ListPopular(ctx context.Context, page int) (*Page, error) {
	if page > 1 {
		return c.Catalog.ListPopular(ctx, page)
	}
	return c.cachedPage(ctx, "popular", cacheKey("popular", "1"), func() (*Page, error) {
		return c.Catalog.ListPopular(ctx, page)
	})
}

func (c *CachedCatalog) ListByGenre(ctx context.Context, genreID, page int) (*Page, error) {
	if page > 1 {
		return c.Catalog.ListByGenre(ctx, genreID, page)
	}
	return c.cachedPage(ctx, "discover", cacheKey("discover", strconv.Itoa(genreID), "1"), func() (*Page, error) {
		return c.Catalog.ListByGenre(ctx, genreID, page)
	})
}

func (c *CachedCatalog) cachedPage(ctx context.Context, op, key string, fetch func() (*Page, error)) (*Page, error) {
	var out Page
	if c.lookup(ctx, op, key, &out) {
		return &out, nil
	}
	p, err := fetch()
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, p, c.listingTTL)
	return p, nil
}

func (c *CachedCatalog) lookup(ctx context.Context, op, key string, dst any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues(op, "miss").Inc()
		return false
	case err != nil:
		metrics.CacheLookups.WithLabelValues(op, "error").Inc()
		c.log.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.CacheLookups.WithLabelValues(op, "error").Inc()
		c.log.Warn("cache entry undecodable", "key", key, "error", err)
		return false
	}
	metrics.CacheLookups.WithLabelValues(op, "hit").Inc()
	return true
}

func (c *CachedCatalog) store(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
}

func cacheKey(op string, params ...string) string {
	h := xxhash.New()
	for _, p := range params {
		_, _ = h.WriteString(p)
		_, _ = h.WriteString("\x00")
	}
	return fmt.Sprintf("%s%s:%016x", cachePrefix, op, h.Sum64())
}
