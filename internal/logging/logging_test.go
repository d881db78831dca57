package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSetupWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(Config{Format: "json", Level: "debug"}, &buf)

	Component("tmdb").Debug("request", "path", "/movie/popular")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request", line["msg"])
	assert.Equal(t, "tmdb", line["component"])
	assert.Equal(t, "/movie/popular", line["path"])
}

func TestSetupWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(Config{Format: "text", Level: "warn"}, &buf)

	Info("hidden")
	assert.Empty(t, buf.String())

	Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
