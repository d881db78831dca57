package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/JustinTDCT/GuessTheMovie/internal/logging"
	"github.com/JustinTDCT/GuessTheMovie/internal/metrics"
	"github.com/JustinTDCT/GuessTheMovie/internal/tracing"
)

// Catalog is the read-only movie catalog used by the game and the API.
type Catalog interface {
	ListPopular(ctx context.Context, page int) (*Page, error)
	ListTopRated(ctx context.Context, page int) (*Page, error)
	ListByGenre(ctx context.Context, genreID, page int) (*Page, error)
	GetMovie(ctx context.Context, id int) (*Movie, error)
	GetImages(ctx context.Context, id int) (*Images, error)
	ListGenres(ctx context.Context) (Genres, error)
	Search(ctx context.Context, query string, page int) (*Page, error)
}

type Options struct {
	APIKey   string
	BaseURL  string
	Language string
	Timeout  time.Duration
	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
}

// Client talks to the TMDB v3 REST API. It never retries; callers decide.
type Client struct {
	apiKey   string
	baseURL  string
	language string
	client   *http.Client
	log      *slog.Logger
}

var _ Catalog = (*Client)(nil)

func NewClient(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = "https://api.themoviedb.org/3"
	}
	lang := opts.Language
	if lang == "" {
		lang = "en-US"
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		apiKey:   opts.APIKey,
		baseURL:  base,
		language: lang,
		client:   hc,
		log:      logging.Component("tmdb"),
	}
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

func (c *Client) ListPopular(ctx context.Context, page int) (*Page, error) {
	var out Page
	err := c.get(ctx, "popular", "/movie/popular", url.Values{"page": {pageParam(page)}}, &out)
	return pageOrNil(&out, err)
}

func (c *Client) ListTopRated(ctx context.Context, page int) (*Page, error) {
	var out Page
	err := c.get(ctx, "top_rated", "/movie/top_rated", url.Values{"page": {pageParam(page)}}, &out)
	return pageOrNil(&out, err)
}

func (c *Client) ListByGenre(ctx context.Context, genreID, page int) (*Page, error) {
	var out Page
	err := c.get(ctx, "discover", "/discover/movie", url.Values{
		"with_genres": {strconv.Itoa(genreID)},
		"page":        {pageParam(page)},
		"sort_by":     {"popularity.desc"},
	}, &out)
	return pageOrNil(&out, err)
}

func (c *Client) GetMovie(ctx context.Context, id int) (*Movie, error) {
	var raw struct {
		Movie
		Genres []Genre `json:"genres"`
	}
	if err := c.get(ctx, "movie", "/movie/"+strconv.Itoa(id), nil, &raw); err != nil {
		return nil, err
	}
	m := raw.Movie
	// Detail responses carry genre objects instead of genre_ids.
	if len(m.GenreIDs) == 0 {
		for _, g := range raw.Genres {
			m.GenreIDs = append(m.GenreIDs, g.ID)
		}
	}
	return &m, nil
}

func (c *Client) GetImages(ctx context.Context, id int) (*Images, error) {
	var out Images
	if err := c.get(ctx, "images", "/movie/"+strconv.Itoa(id)+"/images", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListGenres(ctx context.Context) (Genres, error) {
	var raw struct {
		Genres []Genre `json:"genres"`
	}
	if err := c.get(ctx, "genres", "/genre/movie/list", nil, &raw); err != nil {
		return nil, err
	}
	out := make(Genres, len(raw.Genres))
	for _, g := range raw.Genres {
		out[g.ID] = g.Name
	}
	return out, nil
}

func (c *Client) Search(ctx context.Context, query string, page int) (*Page, error) {
	var out Page
	err := c.get(ctx, "search", "/search/movie", url.Values{
		"query":         {query},
		"page":          {pageParam(page)},
		"include_adult": {"false"},
	}, &out)
	return pageOrNil(&out, err)
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, dst any) (err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "tmdb."+endpoint)
	defer func() {
		outcome := Outcome(err)
		metrics.ObserveTMDB(endpoint, outcome, start)
		span.SetAttributes(attribute.String("tmdb.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			c.log.Warn("catalog request failed", "endpoint", endpoint, "path", path, "outcome", outcome, "error", err)
		}
		span.End()
	}()

	if c.apiKey == "" {
		return ErrConfig
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("tmdb: build url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("language", c.language)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("tmdb: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("catalog request", "endpoint", endpoint, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrAuth
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func pageParam(page int) string {
	if page < 1 {
		page = 1
	}
	return strconv.Itoa(page)
}

func pageOrNil(p *Page, err error) (*Page, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}
