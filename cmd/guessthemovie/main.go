package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JustinTDCT/GuessTheMovie/internal/api"
	"github.com/JustinTDCT/GuessTheMovie/internal/auth"
	"github.com/JustinTDCT/GuessTheMovie/internal/config"
	"github.com/JustinTDCT/GuessTheMovie/internal/db"
	"github.com/JustinTDCT/GuessTheMovie/internal/favorites"
	"github.com/JustinTDCT/GuessTheMovie/internal/game"
	"github.com/JustinTDCT/GuessTheMovie/internal/jobs"
	"github.com/JustinTDCT/GuessTheMovie/internal/logging"
	"github.com/JustinTDCT/GuessTheMovie/internal/scheduler"
	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
	"github.com/JustinTDCT/GuessTheMovie/internal/tracing"
	"github.com/JustinTDCT/GuessTheMovie/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logging.Setup(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel})
	if err := cfg.Validate(); err != nil {
		logging.Error("refusing to start", "error", err)
		os.Exit(1)
	}

	ver := version.Load()
	logging.Info("Guess The Movie starting", "version", ver.Version, "environment", cfg.Environment)

	ctx := context.Background()
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{Endpoint: cfg.OTLPEndpoint, Version: ver.Version})
	if err != nil {
		logging.Error("tracing setup failed", "error", err)
		os.Exit(1)
	}

	var database *db.DB
	if cfg.DatabaseEnabled() {
		database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logging.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		applied, err := db.Migrate(ctx, database.DB)
		if err != nil {
			logging.Error("migration failed", "error", err)
			os.Exit(1)
		}
		logging.Info("database ready", "migrations_applied", applied)
	}

	var rdb *redis.Client
	if cfg.CacheEnabled() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
	}

	client := tmdb.NewClient(tmdb.Options{
		APIKey:   cfg.TMDBAPIKey,
		BaseURL:  cfg.TMDBBaseURL,
		Language: cfg.TMDBLanguage,
		Timeout:  cfg.TMDBTimeout,
	})
	if !client.Configured() {
		logging.Warn("TMDB_API_KEY is not set; every catalog request will fail with a configuration error")
	}
	var catalog tmdb.Catalog = client
	var warmer jobs.GenreWarmer
	if rdb != nil {
		cached := tmdb.NewCachedCatalog(client, rdb, cfg.GenreCacheTTL, cfg.ListingCacheTTL)
		catalog, warmer = cached, cached
	}

	favs, err := favoritesStore(cfg, database, rdb)
	if err != nil {
		logging.Error("favorites store unavailable", "error", err)
		os.Exit(1)
	}
	logging.Info("favorites backend selected", "backend", cfg.FavoritesBackendName())

	var (
		users    auth.UserStore    = auth.NewMemoryUserStore()
		sessions auth.SessionStore = auth.NewMemorySessionStore()
	)
	if database != nil {
		users = auth.NewPostgresUserStore(database.DB)
		sessions = auth.NewPostgresSessionStore(database.DB)
	}
	authSvc := auth.NewService(users, sessions, auth.Options{
		Secret:    []byte(cfg.JWTSecret),
		TTL:       cfg.JWTTTL,
		Providers: cfg.FederatedProviders,
	})

	registry := game.NewRegistry(game.NewSelector(catalog, game.DefaultRand, cfg.TMDBImageBaseURL))

	runner := jobs.NewRunner(warmer, registry, authSvc, cfg.SessionIdleTimeout)
	var dispatcher jobs.Dispatcher = runner
	var queue *jobs.Queue
	if cfg.CacheEnabled() {
		queue = jobs.NewQueue(cfg.RedisAddr)
		jobs.RegisterHandlers(queue, runner)
		if err := queue.Start(); err != nil {
			logging.Error("job worker failed to start", "error", err)
			os.Exit(1)
		}
		dispatcher = queue
	}
	sched, err := scheduler.New(dispatcher, scheduler.DefaultJobs())
	if err != nil {
		logging.Error("scheduler setup failed", "error", err)
		os.Exit(1)
	}
	sched.Start()

	srv := api.NewServer(api.Deps{
		Catalog:     catalog,
		Sessions:    registry,
		Favorites:   favorites.Instrumented{Store: favs},
		Auth:        authSvc,
		Identity:    auth.NewMiddleware(authSvc, cfg.SessionSecret, cfg.IsProduction()),
		Watcher:     auth.NewWatcher(),
		Limiter:     auth.NewRateLimiter(cfg.AuthRateLimit),
		ImageBase:   cfg.TMDBImageBaseURL,
		CORSOrigins: cfg.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Info("listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Warn("http shutdown incomplete", "error", err)
	}
	sched.Stop(shutdownCtx)
	if queue != nil {
		queue.Stop()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logging.Warn("tracing shutdown failed", "error", err)
	}
}

func favoritesStore(cfg *config.Config, database *db.DB, rdb *redis.Client) (favorites.Store, error) {
	switch cfg.FavoritesBackendName() {
	case config.BackendPostgres:
		if database == nil {
			return nil, errors.New("postgres favorites need DATABASE_URL")
		}
		return favorites.NewPostgresStore(database.DB), nil
	case config.BackendRedis:
		if rdb == nil {
			return nil, errors.New("redis favorites need REDIS_ADDR")
		}
		return favorites.NewRedisStore(rdb), nil
	default:
		return favorites.NewMemoryStore(), nil
	}
}
