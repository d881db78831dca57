package game

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/JustinTDCT/GuessTheMovie/internal/logging"
	"github.com/JustinTDCT/GuessTheMovie/internal/metrics"
	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
	"github.com/JustinTDCT/GuessTheMovie/internal/tracing"
)

const (
	// MaxPages is the deepest page the catalog serves.
	MaxPages = 500
	// DistractorCount is the number of wrong answers per round.
	DistractorCount = 3

	minVoteAverage = 6.0
	minVoteCount   = 100
)

var ErrNoEligibleMovies = errors.New("no eligible movies found")

// Rand is the only source of randomness used to build a round.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the process-wide generator and is safe for concurrent use.
var DefaultRand Rand = globalRand{}

// Round is one target movie, its scene image and the wrong answers offered with it.
type Round struct {
	ID          string       `json:"id"`
	Target      tmdb.Movie   `json:"target"`
	SceneImage  string       `json:"scene_image"`
	Distractors []tmdb.Movie `json:"distractors"`
}

// Has reports whether id is the target or one of the distractors.
func (r *Round) Has(id int) (tmdb.Movie, bool) {
	if r.Target.ID == id {
		return r.Target, true
	}
	for _, m := range r.Distractors {
		if m.ID == id {
			return m, true
		}
	}
	return tmdb.Movie{}, false
}

// Choices returns the target and distractors in random order.
func (r *Round) Choices(rnd Rand) []tmdb.Movie {
	out := make([]tmdb.Movie, 0, len(r.Distractors)+1)
	out = append(out, r.Target)
	out = append(out, r.Distractors...)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Selector builds playable rounds from the catalog.
type Selector struct {
	catalog   tmdb.Catalog
	rand      Rand
	imageBase string
	log       *slog.Logger
}

func NewSelector(catalog tmdb.Catalog, rnd Rand, imageBase string) *Selector {
	if rnd == nil {
		rnd = DefaultRand
	}
	return &Selector{
		catalog:   catalog,
		rand:      rnd,
		imageBase: imageBase,
		log:       logging.Component("game"),
	}
}

// Select produces one round, optionally restricted to a genre.
func (s *Selector) Select(ctx context.Context, genreID *int) (round *Round, err error) {
	ctx, span := tracing.StartSpan(ctx, "game.select")
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = tmdb.Outcome(err)
			if errors.Is(err, ErrNoEligibleMovies) {
				outcome = "no_eligible"
			}
			span.RecordError(err)
		} else {
			span.SetAttributes(
				attribute.Int("game.target_id", round.Target.ID),
				attribute.Int("game.distractors", len(round.Distractors)),
			)
		}
		metrics.Rounds.WithLabelValues(outcome).Inc()
		span.End()
	}()

	list := func(page int) (*tmdb.Page, error) {
		if genreID != nil {
			return s.catalog.ListByGenre(ctx, *genreID, page)
		}
		return s.catalog.ListPopular(ctx, page)
	}

	first, err := list(1)
	if err != nil {
		return nil, err
	}
	pages := min(first.TotalPages, MaxPages)
	if pages < 1 {
		pages = 1
	}
	page, err := list(s.rand.IntN(pages) + 1)
	if err != nil {
		return nil, err
	}

	eligible := filterEligible(page.Results)
	if len(eligible) == 0 {
		return nil, ErrNoEligibleMovies
	}
	target := eligible[s.rand.IntN(len(eligible))]

	scene := s.sceneImage(ctx, target)

	distractors, err := s.distractors(ctx, target)
	if err != nil {
		return nil, err
	}

	s.log.Debug("round selected", "target", target.ID, "page", page.Page, "eligible", len(eligible), "distractors", len(distractors))
	return &Round{
		ID:          uuid.NewString(),
		Target:      target,
		SceneImage:  scene,
		Distractors: distractors,
	}, nil
}

func filterEligible(movies []tmdb.Movie) []tmdb.Movie {
	var out []tmdb.Movie
	for _, m := range movies {
		if m.BackdropPath != "" && m.VoteAverage > minVoteAverage && m.VoteCount > minVoteCount {
			out = append(out, m)
		}
	}
	return out
}

// sceneImage prefers a random backdrop, then a random still, then the movie's own backdrop.
func (s *Selector) sceneImage(ctx context.Context, target tmdb.Movie) string {
	path := target.BackdropPath
	imgs, err := s.catalog.GetImages(ctx, target.ID)
	switch {
	case err != nil:
		s.log.Warn("images unavailable, using backdrop", "movie", target.ID, "error", err)
	case len(imgs.Backdrops) > 0:
		path = imgs.Backdrops[s.rand.IntN(len(imgs.Backdrops))].FilePath
	case len(imgs.Stills) > 0:
		path = imgs.Stills[s.rand.IntN(len(imgs.Stills))].FilePath
	}
	return tmdb.ImageURL(s.imageBase, tmdb.SizeOriginal, path)
}

// distractors takes up to three movies from page 1 of the target's first genre,
// then backfills from page 1 of the popular listing. Fewer than three is not an error.
func (s *Selector) distractors(ctx context.Context, target tmdb.Movie) ([]tmdb.Movie, error) {
	out := make([]tmdb.Movie, 0, DistractorCount)
	seen := map[int]bool{target.ID: true}
	take := func(movies []tmdb.Movie) {
		for _, m := range movies {
			if len(out) == DistractorCount {
				return
			}
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			out = append(out, m)
		}
	}

	if len(target.GenreIDs) > 0 {
		p, err := s.catalog.ListByGenre(ctx, target.GenreIDs[0], 1)
		if err != nil {
			return nil, err
		}
		take(p.Results)
	}
	if len(out) < DistractorCount {
		p, err := s.catalog.ListPopular(ctx, 1)
		if err != nil {
			return nil, err
		}
		take(p.Results)
	}
	return out, nil
}
