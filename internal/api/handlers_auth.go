package api

import (
	"net/http"

	"github.com/JustinTDCT/GuessTheMovie/internal/auth"
	"github.com/JustinTDCT/GuessTheMovie/internal/httputil"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"sessions":   s.sessions.Len(),
		"ws_clients": s.wsHub.ClientCount(),
	})
}

type profileView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Provider    string `json:"provider"`
	Created     string `json:"created"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u := auth.FromContext(r.Context())
	created := "Unknown"
	if !u.CreatedAt.IsZero() {
		created = u.CreatedAt.Format("January 2, 2006")
	}
	httputil.WriteJSON(w, http.StatusOK, profileView{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Provider:    u.Provider,
		Created:     created,
	})
}
