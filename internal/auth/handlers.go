package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JustinTDCT/GuessTheMovie/internal/httputil"
)

// ClientIDHeader names the browser client whose identity watchers are told about sign-in changes.
const ClientIDHeader = "X-Client-ID"

type Handler struct {
	svc     *Service
	mw      *Middleware
	watcher *Watcher
	limiter *RateLimiter
}

func NewHandler(svc *Service, mw *Middleware, watcher *Watcher, limiter *RateLimiter) *Handler {
	return &Handler{svc: svc, mw: mw, watcher: watcher, limiter: limiter}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(h.limiter.Middleware)
		r.Post("/signup", h.signUp)
		r.Post("/signin", h.signIn)
		r.Post("/signin/{provider}", h.signInFederated)
	})
	r.Post("/signout", h.signOut)
	r.Get("/providers", h.providers)
	return r
}

type sessionResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "MISSING_FIELDS", "email and password are required")
		return
	}

	u, token, err := h.svc.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		WriteError(w, err)
		return
	}
	h.startSession(w, r, http.StatusCreated, u, token)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	u, token, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}
	h.startSession(w, r, http.StatusOK, u, token)
}

func (h *Handler) signInFederated(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"id_token"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil || req.IDToken == "" {
		httputil.WriteError(w, http.StatusBadRequest, "MISSING_FIELDS", "id_token is required")
		return
	}

	u, token, err := h.svc.SignInFederated(r.Context(), chi.URLParam(r, "provider"), req.IDToken)
	if err != nil {
		WriteError(w, err)
		return
	}
	h.startSession(w, r, http.StatusOK, u, token)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if token := h.mw.Token(r); token != "" {
		if err := h.svc.SignOut(r.Context(), token); err != nil && !errors.Is(err, ErrTokenInvalid) {
			WriteError(w, err)
			return
		}
	}
	_ = h.mw.ClearToken(w, r)
	if clientID := r.Header.Get(ClientIDHeader); clientID != "" {
		h.watcher.Publish(clientID, nil)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *Handler) providers(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"providers": h.svc.Providers()})
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, status int, u *User, token string) {
	if err := h.mw.SaveToken(w, r, token); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to save session")
		return
	}
	if clientID := r.Header.Get(ClientIDHeader); clientID != "" {
		h.watcher.Publish(clientID, u)
	}
	httputil.WriteJSON(w, status, sessionResponse{User: u, Token: token})
}

// WriteError maps identity errors to API responses, passing the message through unchanged.
func WriteError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, ErrInvalidEmail):
		status, code = http.StatusBadRequest, "INVALID_EMAIL"
	case errors.Is(err, ErrWeakPassword):
		status, code = http.StatusBadRequest, "WEAK_PASSWORD"
	case errors.Is(err, ErrEmailExists):
		status, code = http.StatusConflict, "EMAIL_EXISTS"
	case errors.Is(err, ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, ErrTokenExpired):
		status, code = http.StatusUnauthorized, "SESSION_EXPIRED"
	case errors.Is(err, ErrTokenInvalid):
		status, code = http.StatusUnauthorized, "INVALID_TOKEN"
	case errors.Is(err, ErrUnknownProvider):
		status, code = http.StatusNotFound, "UNKNOWN_PROVIDER"
	default:
		httputil.WriteError(w, status, code, "internal error")
		return
	}
	httputil.WriteError(w, status, code, err.Error())
}
