package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/JustinTDCT/GuessTheMovie/internal/game"
	"github.com/JustinTDCT/GuessTheMovie/internal/httputil"
	"github.com/JustinTDCT/GuessTheMovie/internal/tmdb"
)

// classify maps a domain error to an HTTP status, an error code and a user-facing message.
func classify(err error) (int, string, string) {
	var upstream *tmdb.UpstreamError
	switch {
	case errors.Is(err, tmdb.ErrConfig):
		return http.StatusServiceUnavailable, "CONFIG_ERROR", "the movie catalog is not configured"
	case errors.Is(err, tmdb.ErrAuth):
		return http.StatusBadGateway, "UPSTREAM_AUTH", "the movie catalog rejected our credentials"
	case errors.Is(err, tmdb.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED", "too many requests to the movie catalog, try again shortly"
	case errors.Is(err, tmdb.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "movie not found"
	case errors.Is(err, tmdb.ErrTransport):
		return http.StatusGatewayTimeout, "TRANSPORT_ERROR", "could not reach the movie catalog"
	case errors.As(err, &upstream):
		return http.StatusBadGateway, "UPSTREAM_ERROR", "the movie catalog returned an error"
	case errors.Is(err, game.ErrNoEligibleMovies):
		return http.StatusServiceUnavailable, "NO_ELIGIBLE_MOVIES", "no suitable movie found, try again"
	case errors.Is(err, game.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND", err.Error()
	case errors.Is(err, game.ErrNoRound):
		return http.StatusConflict, "NO_ROUND", err.Error()
	case errors.Is(err, game.ErrAlreadyRevealed):
		return http.StatusConflict, "ALREADY_REVEALED", err.Error()
	case errors.Is(err, game.ErrUnknownChoice):
		return http.StatusBadRequest, "UNKNOWN_CHOICE", err.Error()
	case errors.Is(err, game.ErrSuperseded):
		return http.StatusConflict, "SUPERSEDED", "a newer round request replaced this one"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELLED", "the request was cancelled"
	default:
		return http.StatusInternalServerError, "INTERNAL", "something went wrong"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Warn("request failed", "path", r.URL.Path, "code", code, "error", err)
	}
	httputil.WriteError(w, status, code, message)
}

func errorBody(err error) *httputil.ErrorBody {
	if err == nil {
		return nil
	}
	_, code, message := classify(err)
	return &httputil.ErrorBody{Code: code, Message: message}
}
