package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Metadata client
	TMDBRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gtm_tmdb_requests_total",
		Help: "Requests issued to the movie catalog, by endpoint and outcome.",
	}, []string{"endpoint", "outcome"}) // outcome: ok, config, auth, rate_limited, not_found, upstream, transport

	TMDBRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gtm_tmdb_request_duration_seconds",
		Help:    "Latency of movie catalog requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gtm_catalog_cache_lookups_total",
		Help: "Catalog cache lookups, by operation and result.",
	}, []string{"op", "result"}) // result: hit, miss, error

	// Game
	Rounds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gtm_rounds_total",
		Help: "Rounds produced by the round selector, by outcome.",
	}, []string{"outcome"})

	Guesses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gtm_guesses_total",
		Help: "Player guesses, by result.",
	}, []string{"result"}) // result: correct, wrong

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gtm_active_sessions",
		Help: "Game sessions currently held in memory.",
	})

	// Favorites
	FavoritesOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gtm_favorites_ops_total",
		Help: "Favorites store operations, by operation.",
	}, []string{"op"})
)

// ObserveTMDB records one catalog request.
func ObserveTMDB(endpoint, outcome string, start time.Time) {
	TMDBRequests.WithLabelValues(endpoint, outcome).Inc()
	TMDBRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
