package api

import (
	"net/http"

	"github.com/JustinTDCT/GuessTheMovie/internal/auth"
	"github.com/JustinTDCT/GuessTheMovie/internal/favorites"
	"github.com/JustinTDCT/GuessTheMovie/internal/httputil"
	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

type favoriteView struct {
	movieView
	AddedAt string `json:"added_at"`
}

func ownerOf(r *http.Request) string {
	return favorites.OwnerKey(auth.UserID(r.Context()))
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	entries, err := s.favorites.List(r.Context(), ownerOf(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]favoriteView, 0, len(entries))
	for _, e := range entries {
		out = append(out, favoriteView{
			movieView: s.movieView(e.Movie),
			AddedAt:   e.AddedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"favorites": out,
		"count":     len(out),
	})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	var movie tmdb.Movie
	if err := httputil.ReadJSON(r, &movie); err != nil || movie.ID <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "a movie with an id is required")
		return
	}
	added, err := s.favorites.Add(r.Context(), ownerOf(r), movie)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, map[string]bool{
		"added":            added,
		"already_favorite": !added,
	})
}

func (s *Server) handleContainsFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	found, err := s.favorites.Contains(r.Context(), ownerOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": found})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.favorites.Remove(r.Context(), ownerOf(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "removed"})
}
