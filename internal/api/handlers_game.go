package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JustinTDCT/GuessTheMovie/internal/auth"
	"github.com/JustinTDCT/GuessTheMovie/internal/favorites"
	"github.com/JustinTDCT/GuessTheMovie/internal/game"
	"github.com/JustinTDCT/GuessTheMovie/internal/httputil"
	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

type choiceView struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Year      string `json:"year"`
	PosterURL string `json:"poster_url,omitempty"`
}

type targetView struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Year       string `json:"year"`
	Overview   string `json:"overview"`
	PosterURL  string `json:"poster_url,omitempty"`
	ExploreURL string `json:"explore_url"`
}

type stateView struct {
	SessionID   string              `json:"session_id"`
	Phase       game.Phase          `json:"phase"`
	Request     uint64              `json:"request"`
	GenreID     *int                `json:"genre_id"`
	RoundID     string              `json:"round_id,omitempty"`
	SceneImage  string              `json:"scene_image,omitempty"`
	Choices     []choiceView        `json:"choices,omitempty"`
	Selected    *choiceView         `json:"selected,omitempty"`
	Correct     *bool               `json:"correct,omitempty"`
	Target      *targetView         `json:"target,omitempty"`
	CanFavorite bool                `json:"can_favorite"`
	IsFavorite  bool                `json:"is_favorite"`
	Error       *httputil.ErrorBody `json:"error,omitempty"`
}

func (s *Server) choiceView(m tmdb.Movie) choiceView {
	return choiceView{
		ID:        m.ID,
		Title:     m.Title,
		Year:      yearLabel(m),
		PosterURL: tmdb.ImageURL(s.imageBase, tmdb.SizeThumb, m.PosterPath),
	}
}

// renderState builds the client view of st. Choices are reshuffled on every render.
func (s *Server) renderState(ctx context.Context, sessionID string, st game.State) stateView {
	v := stateView{
		SessionID: sessionID,
		Phase:     st.Phase,
		Request:   st.Request,
		GenreID:   st.GenreID,
		Error:     errorBody(st.Err),
	}
	if st.Round == nil {
		return v
	}
	v.RoundID = st.Round.ID
	v.SceneImage = st.Round.SceneImage
	for _, m := range st.Round.Choices(s.rand) {
		v.Choices = append(v.Choices, s.choiceView(m))
	}
	if st.Phase != game.PhaseRevealed || st.Selected == nil {
		return v
	}

	sel := s.choiceView(*st.Selected)
	correct := st.Correct
	t := st.Round.Target
	v.Selected = &sel
	v.Correct = &correct
	v.Target = &targetView{
		ID:         t.ID,
		Title:      t.Title,
		Year:       yearLabel(t),
		Overview:   t.Overview,
		PosterURL:  tmdb.ImageURL(s.imageBase, tmdb.SizeThumb, t.PosterPath),
		ExploreURL: tmdb.ExploreURL(t.ID),
	}

	userID := auth.UserID(ctx)
	v.CanFavorite = userID != ""
	if v.CanFavorite {
		ok, err := s.favorites.Contains(ctx, favorites.OwnerKey(userID), t.ID)
		if err != nil {
			s.log.Warn("favorite lookup failed", "movie", t.ID, "error", err)
		}
		v.IsFavorite = ok
	}
	return v
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

type createSessionRequest struct {
	GenreID *int `json:"genre_id"`
}

// handleCreateSession opens a session and loads its first round. A failed first
// load still answers 201: the session exists in the failed phase and can be retried.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	sess := s.sessions.Create()
	st, err := sess.Machine.Load(r.Context(), req.GenreID)
	if err != nil {
		s.log.Info("first round failed", "session", sess.ID, "error", err)
	}
	httputil.WriteJSON(w, http.StatusCreated, s.renderState(r.Context(), sess.ID, st))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.renderState(r.Context(), sess.ID, sess.Machine.State()))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.sessions.Delete(sess.ID)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "session closed"})
}

// handleNewRound starts the next round. A body with "genre_id" switches the
// filter (null for all genres); an empty body repeats the current filter.
func (s *Server) handleNewRound(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req map[string]*int
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}

	var (
		st  game.State
		err error
	)
	if genre, set := req["genre_id"]; set {
		st, err = sess.Machine.Load(r.Context(), genre)
	} else {
		st, err = sess.Machine.Reload(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.renderState(r.Context(), sess.ID, st))
}

type guessRequest struct {
	MovieID int `json:"movie_id"`
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req guessRequest
	if err := httputil.ReadJSON(r, &req); err != nil || req.MovieID <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_BODY", "movie_id is required")
		return
	}
	st, err := sess.Machine.Choose(req.MovieID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.renderState(r.Context(), sess.ID, st))
}

type favoriteResult struct {
	Added           bool      `json:"added"`
	AlreadyFavorite bool      `json:"already_favorite"`
	State           stateView `json:"state"`
}

// handleFavoriteTarget saves the revealed round's target for the signed-in user.
func (s *Server) handleFavoriteTarget(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st := sess.Machine.State()
	if st.Phase != game.PhaseRevealed || st.Round == nil {
		httputil.WriteError(w, http.StatusConflict, "NOT_REVEALED", "reveal the answer before saving it")
		return
	}

	added, err := s.favorites.Add(r.Context(), favorites.OwnerKey(auth.UserID(r.Context())), st.Round.Target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !added {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, favoriteResult{
		Added:           added,
		AlreadyFavorite: !added,
		State:           s.renderState(r.Context(), sess.ID, st),
	})
}
