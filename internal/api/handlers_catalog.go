package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JustinTDCT/GuessTheMovie/internal/httputil"
	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

type movieView struct {
	tmdb.Movie
	Year        string `json:"year"`
	PosterURL   string `json:"poster_url,omitempty"`
	BackdropURL string `json:"backdrop_url,omitempty"`
	ExploreURL  string `json:"explore_url"`
}

type pageView struct {
	Page         int         `json:"page"`
	Results      []movieView `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

func yearLabel(m tmdb.Movie) string {
	if y := m.Year(); y > 0 {
		return strconv.Itoa(y)
	}
	return "Unknown Year"
}

func (s *Server) movieView(m tmdb.Movie) movieView {
	return movieView{
		Movie:       m,
		Year:        yearLabel(m),
		PosterURL:   tmdb.ImageURL(s.imageBase, tmdb.SizeThumb, m.PosterPath),
		BackdropURL: tmdb.ImageURL(s.imageBase, tmdb.SizeOriginal, m.BackdropPath),
		ExploreURL:  tmdb.ExploreURL(m.ID),
	}
}

func (s *Server) pageView(p *tmdb.Page) pageView {
	out := pageView{
		Page:         p.Page,
		Results:      make([]movieView, 0, len(p.Results)),
		TotalPages:   p.TotalPages,
		TotalResults: p.TotalResults,
	}
	for _, m := range p.Results {
		out.Results = append(out.Results, s.movieView(m))
	}
	return out
}

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.catalog.ListGenres(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"genres": genres.Sorted(),
		"count":  len(genres),
	})
}

func (s *Server) handleListPopular(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.ListPopular(r.Context(), httputil.QueryInt(r, "page", 1))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.pageView(p))
}

func (s *Server) handleListTopRated(w http.ResponseWriter, r *http.Request) {
	p, err := s.catalog.ListTopRated(r.Context(), httputil.QueryInt(r, "page", 1))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.pageView(p))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httputil.WriteError(w, http.StatusBadRequest, "MISSING_QUERY", "q is required")
		return
	}
	p, err := s.catalog.Search(r.Context(), q, httputil.QueryInt(r, "page", 1))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.pageView(p))
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := s.catalog.GetMovie(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.movieView(*m))
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "invalid movie id")
		return 0, false
	}
	return id, true
}
