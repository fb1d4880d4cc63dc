// ABOUTME: Tests for logger construction
// ABOUTME: Verifies level parsing, JSON vs text output, and attr/group rendering

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/anonchat/internal/config"
)

func noColor(t *testing.T) {
	t.Helper()
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("connected", "mode", "push")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "connected", rec["msg"])
	assert.Equal(t, "push", rec["mode"])
}

func TestNew_Text(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "debug"}, &buf)

	logger.With("component", "transport").WithGroup("conn").Warn("dropped", "attempt", 2)
	logger.Debug("pull", slog.Group("page", "count", 3))

	out := buf.String()
	assert.Contains(t, out, "WRN dropped component=transport conn.attempt=2")
	assert.Contains(t, out, "DBG pull page.count=3")
}

func TestNew_TextRespectsLevel(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "error", Format: "text"}, &buf)

	logger.Warn("quiet")
	logger.Error("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "ERR loud")
}
