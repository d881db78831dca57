package tmdb

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is returned before any network call when no credential is configured.
	ErrConfig = errors.New("tmdb: API key is not configured")
	// ErrAuth means the service rejected the credential.
	ErrAuth = errors.New("tmdb: API key is invalid or missing")
	// ErrRateLimited means the request quota is exhausted.
	ErrRateLimited = errors.New("tmdb: rate limit exceeded")
	ErrNotFound    = errors.New("tmdb: resource not found")
	// ErrTransport matches every *TransportError via errors.Is.
	ErrTransport = errors.New("tmdb: transport failure")
)

// UpstreamError is any other non-success response.
type UpstreamError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tmdb: upstream error %d: %v", e.StatusCode, e.Err)
	}
	if e.Status != "" {
		return fmt.Sprintf("tmdb: upstream error %s", e.Status)
	}
	return fmt.Sprintf("tmdb: upstream error %d", e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// TransportError means the request never completed (DNS, connection, timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tmdb: request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Outcome names the error class of err for metrics and logs.
func Outcome(err error) string {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.As(err, &upstream):
		return "upstream"
	default:
		return "error"
	}
}
