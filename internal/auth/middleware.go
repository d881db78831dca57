package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/JustinTDCT/GuessTheMovie/internal/httputil"
)

const (
	cookieName = "gtm-session"
	tokenKey   = "token"
)

// Middleware attaches the caller's identity to the request context.
type Middleware struct {
	svc     *Service
	cookies *sessions.CookieStore
}

func NewMiddleware(svc *Service, cookieSecret string, secure bool) *Middleware {
	store := sessions.NewCookieStore([]byte(cookieSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(svc.TTL().Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Middleware{svc: svc, cookies: store}
}

// Optional resolves the identity when a valid token is present and otherwise
// continues anonymously.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := m.Token(r); token != "" {
			if u, err := m.svc.Current(r.Context(), token); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), u))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Required rejects anonymous callers with 401 SIGN_IN_REQUIRED.
func (m *Middleware) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			token := m.Token(r)
			if token == "" {
				httputil.WriteError(w, http.StatusUnauthorized, "SIGN_IN_REQUIRED", "sign in to continue")
				return
			}
			u, err := m.svc.Current(r.Context(), token)
			if err != nil {
				code := "SIGN_IN_REQUIRED"
				if errors.Is(err, ErrTokenExpired) {
					code = "SESSION_EXPIRED"
				}
				httputil.WriteError(w, http.StatusUnauthorized, code, err.Error())
				return
			}
			r = r.WithContext(WithIdentity(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

// Token reads the session token from the Authorization header, then the session cookie.
func (m *Middleware) Token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	sess, err := m.cookies.Get(r, cookieName)
	if err != nil {
		return ""
	}
	token, _ := sess.Values[tokenKey].(string)
	return token
}

// SaveToken stores token in the session cookie.
func (m *Middleware) SaveToken(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := m.cookies.Get(r, cookieName)
	sess.Values[tokenKey] = token
	return sess.Save(r, w)
}

// ClearToken expires the session cookie.
func (m *Middleware) ClearToken(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.cookies.Get(r, cookieName)
	delete(sess.Values, tokenKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
