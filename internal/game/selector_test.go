package game

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

const imageBase = "https://image.tmdb.org/t/p/"

func ids(movies []tmdb.Movie) []int {
	out := make([]int, len(movies))
	for i, m := range movies {
		out[i] = m.ID
	}
	return out
}

func TestSelect_SinglePageGenreWithOneOther(t *testing.T) {
	cat := newFakeCatalog()
	cat.popular[1] = &tmdb.Page{Page: 1, TotalPages: 1, Results: []tmdb.Movie{eligible(10, 28)}}
	cat.setGenrePage(28, 1, &tmdb.Page{Page: 1, Results: []tmdb.Movie{eligible(10, 28), plain(11)}})

	// The popular listing only offers the target again, so nothing can backfill.
	s := NewSelector(cat, &scriptedRand{}, imageBase)
	round, err := s.Select(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 10, round.Target.ID)
	assert.Equal(t, []int{11}, ids(round.Distractors))
	assert.NotEmpty(t, round.ID)
}

func TestSelect_BackfillsFromPopular(t *testing.T) {
	cat := newFakeCatalog()
	cat.popular[1] = &tmdb.Page{Page: 1, TotalPages: 1, Results: []tmdb.Movie{
		eligible(10, 28), plain(11), plain(20), plain(21), plain(22),
	}}
	cat.setGenrePage(28, 1, &tmdb.Page{Page: 1, Results: []tmdb.Movie{eligible(10, 28), plain(11)}})

	round, err := NewSelector(cat, &scriptedRand{}, imageBase).Select(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []int{11, 20, 21}, ids(round.Distractors))
	assert.NotContains(t, ids(round.Distractors), round.Target.ID)
}

func TestSelect_OnlyFirstGenreIsQueried(t *testing.T) {
	cat := newFakeCatalog()
	cat.popular[1] = &tmdb.Page{Page: 1, TotalPages: 1, Results: []tmdb.Movie{eligible(10, 28, 35)}}
	cat.setGenrePage(28, 1, &tmdb.Page{Page: 1, Results: []tmdb.Movie{plain(1), plain(2), plain(3), plain(4)}})

	round, err := NewSelector(cat, &scriptedRand{}, imageBase).Select(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, ids(round.Distractors))
	assert.NotContains(t, cat.calls, "genre:35:1")
	// listing page plus the random page; no backfill call
	assert.Equal(t, 2, countCalls(cat.calls, "popular:1"))
}

func countCalls(calls []string, want string) int {
	n := 0
	for _, c := range calls {
		if c == want {
			n++
		}
	}
	return n
}

func TestSelect_TargetWithoutGenresUsesPopularOnly(t *testing.T) {
	cat := newFakeCatalog()
	cat.popular[1] = &tmdb.Page{Page: 1, TotalPages: 1, Results: []tmdb.Movie{
		eligible(10), plain(20), plain(21), plain(22), plain(23),
	}}

	round, err := NewSelector(cat, &scriptedRand{}, imageBase).Select(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 10, round.Target.ID)
	assert.Equal(t, []int{20, 21, 22}, ids(round.Distractors))
	for _, c := range cat.calls {
		assert.False(t, strings.HasPrefix(c, "genre:"), "unexpected genre listing %q", c)
	}
	// listing page, random page, then the backfill
	assert.Equal(t, 3, countCalls(cat.calls, "popular:1"))
}

func TestSelect_PageRangeCappedAt500(t *testing.T) {
	cat := newFakeCatalog()
	cat.setGenrePage(27, 500, &tmdb.Page{Page: 500, Results: []tmdb.Movie{eligible(42, 27)}})
	cat.setGenrePage(27, 1, &tmdb.Page{Page: 1, TotalPages: 9000, Results: []tmdb.Movie{plain(1), plain(2), plain(3)}})

	rnd := &scriptedRand{values: []int{9999}}
	round, err := NewSelector(cat, rnd, imageBase).Select(context.Background(), intPtr(27))
	require.NoError(t, err)

	assert.Equal(t, MaxPages, rnd.asked[0])
	assert.Contains(t, cat.calls, "genre:27:500")
	assert.Equal(t, 42, round.Target.ID)
	assert.Equal(t, []int{1, 2, 3}, ids(round.Distractors))
}

func TestSelect_ZeroTotalPagesStillFetchesPageOne(t *testing.T) {
	cat := newFakeCatalog()
	cat.popular[1] = &tmdb.Page{Page: 1, TotalPages: 0}

	rnd := &scriptedRand{}
	_, err := NewSelector(cat, rnd, imageBase).Select(context.Background(), nil)

	assert.ErrorIs(t, err, ErrNoEligibleMovies)
	assert.Equal(t, 1, rnd.asked[0])
}

func TestSelect_EligibilityFilter(t *testing.T) {
	noBackdrop := eligible(1)
	noBackdrop.BackdropPath = ""
	lowRating := eligible(2)
	lowRating.VoteAverage = 6.0
	fewVotes := eligible(3)
	fewVotes.VoteCount = 100

	cat := newFakeCatalog()
	cat.popular[1] = &tmdb.Page{Page: 1, TotalPages: 1, Results: []tmdb.Movie{noBackdrop, lowRating, fewVotes}}

	_, err := NewSelector(cat, &scriptedRand{}, imageBase).Select(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoEligibleMovies)

	cat.popular[1].Results = append(cat.popular[1].Results, eligible(4))
	round, err := NewSelector(cat, &scriptedRand{}, imageBase).Select(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, round.Target.ID)
}

func TestSelect_SceneImagePriority(t *testing.T) {
	tests := []struct {
		name   string
		images *tmdb.Images
		err    error
		want   string
	}{
		{
			name: "random backdrop",
			images: &tmdb.Images{
				Backdrops: []tmdb.Image{{FilePath: "/a.jpg"}, {FilePath: "/b.jpg"}},
				Stills:    []tmdb.Image{{FilePath: "/still.jpg"}},
			},
			want: imageBase + "original/b.jpg",
		},
		{
			name:   "still when no backdrops",
			images: &tmdb.Images{Stills: []tmdb.Image{{FilePath: "/still.jpg"}}},
			want:   imageBase + "original/still.jpg",
		},
		{
			name:   "own backdrop when empty",
			images: &tmdb.Images{},
			want:   imageBase + "original/backdrop-10.jpg",
		},
		{
			name: "own backdrop when images fail",
			err:  tmdb.ErrRateLimited,
			want: imageBase + "original/backdrop-10.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := newFakeCatalog()
			cat.popular[1] = &tmdb.Page{Page: 1, TotalPages: 1, Results: []tmdb.Movie{eligible(10)}}
			if tt.images != nil {
				cat.images[10] = tt.images
			}
			if tt.err != nil {
				cat.errs["images:10"] = tt.err
			}

			// page, target, scene image
			rnd := &scriptedRand{values: []int{0, 0, 1}}
			round, err := NewSelector(cat, rnd, imageBase).Select(context.Background(), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, round.SceneImage)
		})
	}
}

func TestSelect_ListingErrorsPropagate(t *testing.T) {
	cat := newFakeCatalog()
	cat.errs["popular:1"] = tmdb.ErrAuth

	_, err := NewSelector(cat, &scriptedRand{}, imageBase).Select(context.Background(), nil)
	assert.ErrorIs(t, err, tmdb.ErrAuth)
}

func TestSelect_DistractorErrorFailsRound(t *testing.T) {
	cat := newFakeCatalog()
	cat.popular[1] = &tmdb.Page{Page: 1, TotalPages: 1, Results: []tmdb.Movie{eligible(10, 18)}}
	boom := errors.New("boom")
	cat.errs["genre:18:1"] = boom

	_, err := NewSelector(cat, &scriptedRand{}, imageBase).Select(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestRound_ChoicesAndHas(t *testing.T) {
	r := &Round{Target: plain(1), Distractors: []tmdb.Movie{plain(2), plain(3), plain(4)}}

	choices := r.Choices(&scriptedRand{values: []int{0, 0, 0}})
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, ids(choices))
	assert.Equal(t, []int{2, 3, 4, 1}, ids(choices))

	m, ok := r.Has(3)
	assert.True(t, ok)
	assert.Equal(t, 3, m.ID)
	_, ok = r.Has(99)
	assert.False(t, ok)
}
