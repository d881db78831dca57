package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

// fakeCatalog serves canned pages keyed by listing and page number.
type fakeCatalog struct {
	mu      sync.Mutex
	popular map[int]*tmdb.Page
	byGenre map[int]map[int]*tmdb.Page
	images  map[int]*tmdb.Images
	errs    map[string]error
	calls   []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		popular: map[int]*tmdb.Page{},
		byGenre: map[int]map[int]*tmdb.Page{},
		images:  map[int]*tmdb.Images{},
		errs:    map[string]error{},
	}
}

func (f *fakeCatalog) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.errs[call]
}

func (f *fakeCatalog) setGenrePage(genreID, page int, p *tmdb.Page) {
	if f.byGenre[genreID] == nil {
		f.byGenre[genreID] = map[int]*tmdb.Page{}
	}
	f.byGenre[genreID][page] = p
}

func (f *fakeCatalog) ListPopular(_ context.Context, page int) (*tmdb.Page, error) {
	if err := f.record(fmt.Sprintf("popular:%d", page)); err != nil {
		return nil, err
	}
	if p, ok := f.popular[page]; ok {
		return p, nil
	}
	return &tmdb.Page{Page: page}, nil
}

func (f *fakeCatalog) ListTopRated(_ context.Context, page int) (*tmdb.Page, error) {
	return &tmdb.Page{Page: page}, f.record(fmt.Sprintf("top:%d", page))
}

func (f *fakeCatalog) ListByGenre(_ context.Context, genreID, page int) (*tmdb.Page, error) {
	if err := f.record(fmt.Sprintf("genre:%d:%d", genreID, page)); err != nil {
		return nil, err
	}
	if p, ok := f.byGenre[genreID][page]; ok {
		return p, nil
	}
	return &tmdb.Page{Page: page}, nil
}

func (f *fakeCatalog) GetMovie(_ context.Context, id int) (*tmdb.Movie, error) {
	return nil, f.record(fmt.Sprintf("movie:%d", id))
}

func (f *fakeCatalog) GetImages(_ context.Context, id int) (*tmdb.Images, error) {
	if err := f.record(fmt.Sprintf("images:%d", id)); err != nil {
		return nil, err
	}
	if imgs, ok := f.images[id]; ok {
		return imgs, nil
	}
	return &tmdb.Images{ID: id}, nil
}

func (f *fakeCatalog) ListGenres(context.Context) (tmdb.Genres, error) {
	return tmdb.Genres{}, f.record("genres")
}

func (f *fakeCatalog) Search(_ context.Context, query string, page int) (*tmdb.Page, error) {
	return &tmdb.Page{Page: page}, f.record("search:" + query)
}

// scriptedRand returns queued values in order, clamped to n, then zeros.
type scriptedRand struct {
	mu     sync.Mutex
	values []int
	asked  []int
}

func (r *scriptedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asked = append(r.asked, n)
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[0]
	r.values = r.values[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

func eligible(id int, genres ...int) tmdb.Movie {
	return tmdb.Movie{
		ID:           id,
		Title:        fmt.Sprintf("Movie %d", id),
		BackdropPath: fmt.Sprintf("/backdrop-%d.jpg", id),
		VoteAverage:  7.5,
		VoteCount:    1000,
		GenreIDs:     genres,
		ReleaseDate:  "2001-01-01",
	}
}

func plain(id int) tmdb.Movie {
	return tmdb.Movie{ID: id, Title: fmt.Sprintf("Movie %d", id)}
}

func intPtr(v int) *int { return &v }
