package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTMDBBaseURL  = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/"

	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	devSecret = "change-me-in-production"
)

var ErrInsecureSecret = errors.New("secret is unset or the development default")

type Config struct {
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`

	TMDBAPIKey       string        `yaml:"tmdb_api_key"`
	TMDBBaseURL      string        `yaml:"tmdb_base_url"`
	TMDBImageBaseURL string        `yaml:"tmdb_image_base_url"`
	TMDBLanguage     string        `yaml:"tmdb_language"`
	TMDBTimeout      time.Duration `yaml:"tmdb_timeout"`

	DatabaseURL      string `yaml:"database_url"`
	RedisAddr        string `yaml:"redis_addr"`
	FavoritesBackend string `yaml:"favorites_backend"`

	JWTSecret          string            `yaml:"jwt_secret"`
	JWTTTL             time.Duration     `yaml:"jwt_ttl"`
	SessionSecret      string            `yaml:"session_secret"`
	FederatedProviders map[string]string `yaml:"federated_providers"`
	AuthRateLimit      int               `yaml:"auth_rate_limit"`
	CORSOrigins        []string          `yaml:"cors_origins"`

	LogFormat    string `yaml:"log_format"`
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	GenreCacheTTL      time.Duration `yaml:"genre_cache_ttl"`
	ListingCacheTTL    time.Duration `yaml:"listing_cache_ttl"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:               8080,
		Environment:        "development",
		TMDBBaseURL:        DefaultTMDBBaseURL,
		TMDBImageBaseURL:   DefaultImageBaseURL,
		TMDBLanguage:       "en-US",
		TMDBTimeout:        10 * time.Second,
		JWTSecret:          devSecret,
		JWTTTL:             30 * 24 * time.Hour,
		SessionSecret:      devSecret,
		FederatedProviders: map[string]string{},
		AuthRateLimit:      10,
		CORSOrigins:        []string{"*"},
		LogFormat:          "text",
		LogLevel:           "info",
		GenreCacheTTL:      24 * time.Hour,
		ListingCacheTTL:    10 * time.Minute,
		SessionIdleTimeout: 2 * time.Hour,
	}
}

// Load reads an optional .env file, an optional YAML file named by GTM_CONFIG,
// then applies environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("GTM_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envInt("PORT", c.Port)
	c.Environment = env("ENVIRONMENT", c.Environment)

	c.TMDBAPIKey = env("TMDB_API_KEY", c.TMDBAPIKey)
	c.TMDBBaseURL = env("TMDB_BASE_URL", c.TMDBBaseURL)
	c.TMDBImageBaseURL = env("TMDB_IMAGE_BASE_URL", c.TMDBImageBaseURL)
	c.TMDBLanguage = env("TMDB_LANGUAGE", c.TMDBLanguage)
	c.TMDBTimeout = envDuration("TMDB_TIMEOUT", c.TMDBTimeout)

	c.DatabaseURL = env("DATABASE_URL", c.DatabaseURL)
	c.RedisAddr = env("REDIS_ADDR", c.RedisAddr)
	c.FavoritesBackend = env("FAVORITES_BACKEND", c.FavoritesBackend)

	c.JWTSecret = env("JWT_SECRET", c.JWTSecret)
	c.JWTTTL = envDuration("JWT_TTL", c.JWTTTL)
	c.SessionSecret = env("SESSION_SECRET", c.SessionSecret)
	if v := os.Getenv("FEDERATED_PROVIDERS"); v != "" {
		c.FederatedProviders = parsePairs(v)
	}
	c.AuthRateLimit = envInt("AUTH_RATE_LIMIT", c.AuthRateLimit)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	c.LogFormat = env("LOG_FORMAT", c.LogFormat)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.OTLPEndpoint = env("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)

	c.GenreCacheTTL = envDuration("GENRE_CACHE_TTL", c.GenreCacheTTL)
	c.ListingCacheTTL = envDuration("LISTING_CACHE_TTL", c.ListingCacheTTL)
	c.SessionIdleTimeout = envDuration("SESSION_IDLE_TIMEOUT", c.SessionIdleTimeout)
}

// Validate rejects settings that are unsafe to run with. Production refuses the
// development signing secrets since anyone could forge sessions with them.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if c.JWTSecret == "" || c.JWTSecret == devSecret {
		return fmt.Errorf("JWT_SECRET: %w", ErrInsecureSecret)
	}
	if c.SessionSecret == "" || c.SessionSecret == devSecret {
		return fmt.Errorf("SESSION_SECRET: %w", ErrInsecureSecret)
	}
	return nil
}

func (c *Config) DatabaseEnabled() bool {
	return c.DatabaseURL != ""
}

func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// FavoritesBackendName resolves the "auto" (empty) backend choice.
func (c *Config) FavoritesBackendName() string {
	switch strings.ToLower(c.FavoritesBackend) {
	case BackendMemory, BackendPostgres, BackendRedis:
		return strings.ToLower(c.FavoritesBackend)
	}
	switch {
	case c.DatabaseEnabled():
		return BackendPostgres
	case c.CacheEnabled():
		return BackendRedis
	default:
		return BackendMemory
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := cast.ToDurationE(v); err == nil {
			return d
		}
	}
	return fallback
}

// parsePairs parses "a=1,b=2".
func parsePairs(s string) map[string]string {
	out := map[string]string{}
	for _, item := range splitList(s) {
		k, v, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
