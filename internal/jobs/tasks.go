package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/JustinTDCT/GuessTheMovie/internal/logging"
)

const (
	TaskWarmGenres    = "catalog:warm-genres"
	TaskSweepSessions = "game:sweep-sessions"
)

type WarmGenresPayload struct{}

type SweepSessionsPayload struct {
	// IdleSeconds overrides the configured idle timeout when positive.
	IdleSeconds int `json:"idle_seconds,omitempty"`
}

// GenreWarmer refreshes the cached genre list. *tmdb.CachedCatalog implements it.
type GenreWarmer interface {
	WarmGenres(ctx context.Context) (int, error)
}

// SessionSweeper drops idle game sessions. *game.Registry implements it.
type SessionSweeper interface {
	Sweep(ctx context.Context, idle time.Duration) int
}

// RevocationPurger forgets revoked tokens that have expired. *auth.Service implements it.
type RevocationPurger interface {
	PurgeRevocations(ctx context.Context) (int, error)
}

// Dispatcher hands a task to whatever runs it: the asynq queue or, without Redis, a Runner.
type Dispatcher interface {
	Dispatch(ctx context.Context, taskType string, payload any) error
}

// Runner executes tasks. It backs both the asynq handlers and in-process dispatch.
type Runner struct {
	genres      GenreWarmer
	sessions    SessionSweeper
	revocations RevocationPurger
	idle        time.Duration
	log         *slog.Logger
}

// NewRunner builds a Runner. genres may be nil when the catalog cache is disabled.
func NewRunner(genres GenreWarmer, sessions SessionSweeper, revocations RevocationPurger, idle time.Duration) *Runner {
	return &Runner{
		genres:      genres,
		sessions:    sessions,
		revocations: revocations,
		idle:        idle,
		log:         logging.Component("jobs"),
	}
}

func (r *Runner) WarmGenres(ctx context.Context) error {
	if r.genres == nil {
		r.log.Debug("genre cache disabled, nothing to warm")
		return nil
	}
	n, err := r.genres.WarmGenres(ctx)
	if err != nil {
		return fmt.Errorf("warm genres: %w", err)
	}
	r.log.Info("genre cache warmed", "genres", n)
	return nil
}

func (r *Runner) SweepSessions(ctx context.Context, p SweepSessionsPayload) error {
	idle := r.idle
	if p.IdleSeconds > 0 {
		idle = time.Duration(p.IdleSeconds) * time.Second
	}
	removed := r.sessions.Sweep(ctx, idle)
	purged := 0
	if r.revocations != nil {
		var err error
		if purged, err = r.revocations.PurgeRevocations(ctx); err != nil {
			return fmt.Errorf("purge revocations: %w", err)
		}
	}
	if removed > 0 || purged > 0 {
		r.log.Info("sweep finished", "sessions_removed", removed, "revocations_purged", purged)
	}
	return nil
}

// Dispatch runs the task synchronously.
func (r *Runner) Dispatch(ctx context.Context, taskType string, payload any) error {
	switch taskType {
	case TaskWarmGenres:
		return r.WarmGenres(ctx)
	case TaskSweepSessions:
		p, _ := payload.(SweepSessionsPayload)
		return r.SweepSessions(ctx, p)
	default:
		return fmt.Errorf("unknown task type %q", taskType)
	}
}

type WarmGenresHandler struct {
	runner *Runner
}

func (h *WarmGenresHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	return h.runner.WarmGenres(ctx)
}

type SweepSessionsHandler struct {
	runner *Runner
}

func (h *SweepSessionsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p SweepSessionsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal: %v: %w", err, asynq.SkipRetry)
		}
	}
	return h.runner.SweepSessions(ctx, p)
}

func RegisterHandlers(q *Queue, r *Runner) {
	q.RegisterHandler(TaskWarmGenres, &WarmGenresHandler{runner: r})
	q.RegisterHandler(TaskSweepSessions, &SweepSessionsHandler{runner: r})
}
