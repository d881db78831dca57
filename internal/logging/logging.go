// Package logging configures the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logging configuration.
type Config struct {
	Format string // "json" or "text"
	Level  string // "debug", "info", "warn", "error"
}

// DefaultConfig returns text output at info level.
func DefaultConfig() Config {
	return Config{
		Format: "text",
		Level:  "info",
	}
}

var logger *slog.Logger

// Setup initializes the global logger and installs it as the slog default.
func Setup(cfg Config) {
	SetupWriter(cfg, os.Stderr)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(cfg Config, w io.Writer) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the configured logger, or the slog default if Setup was never called.
func Get() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return Get().With(args...)
}

// Component returns a logger tagged with a component name.
func Component(name string) *slog.Logger {
	return Get().With("component", name)
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }
