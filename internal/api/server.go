package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/JustinTDCT/GuessTheMovie/internal/auth"
	"github.com/JustinTDCT/GuessTheMovie/internal/favorites"
	"github.com/JustinTDCT/GuessTheMovie/internal/game"
	"github.com/JustinTDCT/GuessTheMovie/internal/logging"
	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Catalog     tmdb.Catalog
	Sessions    *game.Registry
	Favorites   favorites.Store
	Auth        *auth.Service
	Identity    *auth.Middleware
	Watcher     *auth.Watcher
	Limiter     *auth.RateLimiter
	ImageBase   string
	CORSOrigins []string
	// Rand shuffles choices for display; nil uses game.DefaultRand.
	Rand game.Rand
}

type Server struct {
	catalog   tmdb.Catalog
	sessions  *game.Registry
	favorites favorites.Store
	auth      *auth.Service
	identity  *auth.Middleware
	watcher   *auth.Watcher
	limiter   *auth.RateLimiter
	imageBase string
	origins   []string
	rand      game.Rand
	wsHub     *WSHub
	log       *slog.Logger
	handler   http.Handler
}

func NewServer(d Deps) *Server {
	rnd := d.Rand
	if rnd == nil {
		rnd = game.DefaultRand
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s := &Server{
		catalog:   d.Catalog,
		sessions:  d.Sessions,
		favorites: d.Favorites,
		auth:      d.Auth,
		identity:  d.Identity,
		watcher:   d.Watcher,
		limiter:   d.Limiter,
		imageBase: d.ImageBase,
		origins:   origins,
		rand:      rnd,
		wsHub:     NewWSHub(),
		log:       logging.Component("api"),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identity.Optional)

		r.Mount("/auth", auth.NewHandler(s.auth, s.identity, s.watcher, s.limiter).Router())
		r.With(s.identity.Required).Get("/profile", s.handleGetProfile)

		r.Get("/genres", s.handleListGenres)
		r.Get("/movies/popular", s.handleListPopular)
		r.Get("/movies/top-rated", s.handleListTopRated)
		r.Get("/movies/search", s.handleSearch)
		r.Get("/movies/{id}", s.handleGetMovie)

		r.Post("/game/sessions", s.handleCreateSession)
		r.Get("/game/sessions/{id}", s.handleGetSession)
		r.Delete("/game/sessions/{id}", s.handleDeleteSession)
		r.Post("/game/sessions/{id}/round", s.handleNewRound)
		r.Post("/game/sessions/{id}/guess", s.handleGuess)
		r.With(s.identity.Required).Post("/game/sessions/{id}/favorite", s.handleFavoriteTarget)

		r.Group(func(r chi.Router) {
			r.Use(s.identity.Required)
			r.Get("/favorites", s.handleListFavorites)
			r.Post("/favorites", s.handleAddFavorite)
			r.Get("/favorites/{id}", s.handleContainsFavorite)
			r.Delete("/favorites/{id}", s.handleRemoveFavorite)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", auth.ClientIDHeader},
		AllowCredentials: true,
	})
	return otelhttp.NewHandler(c.Handler(r), "guessthemovie")
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
