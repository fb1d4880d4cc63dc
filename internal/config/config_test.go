// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, env overrides, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// clearEnv unsets the override variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANONCHAT_SERVER_URL", "ANONCHAT_WS_URL", "ANONCHAT_DATA_PATH",
		"ANONCHAT_LOG_LEVEL", "ANONCHAT_LOG_FORMAT",
	} {
		if old, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { os.Setenv(key, old) })
		}
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "config.yaml", `
server:
  url: "https://chat.example.com/"

storage:
  path: "/tmp/anonchat-test.db"

sync:
  pull_interval: "3s"
  safety_interval: "1m"
  staleness_threshold: "15s"
  handshake_timeout: "4s"
  keepalive_interval: "20s"
  tombstone_ttl: "5m"

reconnect:
  initial_backoff: "500ms"
  max_backoff: "10s"
  multiplier: 1.5
  max_attempts: 3

logging:
  level: "DEBUG"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com", cfg.Server.URL)
	assert.Equal(t, "wss://chat.example.com/ws/chat", cfg.Server.WSURL)
	assert.Equal(t, "/tmp/anonchat-test.db", cfg.Storage.Path)

	assert.Equal(t, 3*time.Second, cfg.Sync.PullInterval)
	assert.Equal(t, time.Minute, cfg.Sync.SafetyInterval)
	assert.Equal(t, 15*time.Second, cfg.Sync.StalenessThreshold)
	assert.Equal(t, 4*time.Second, cfg.Sync.HandshakeTimeout)
	assert.Equal(t, 20*time.Second, cfg.Sync.KeepaliveInterval)
	assert.Equal(t, 5*time.Minute, cfg.Sync.TombstoneTTL)

	assert.Equal(t, 500*time.Millisecond, cfg.Reconnect.InitialBackoff)
	assert.Equal(t, 10*time.Second, cfg.Reconnect.MaxBackoff)
	assert.Equal(t, 1.5, cfg.Reconnect.Multiplier)
	assert.Equal(t, 3, cfg.Reconnect.MaxAttempts)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_ValidTOML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "config.toml", `
[server]
url = "http://10.0.0.5:8001"
ws_url = "ws://10.0.0.5:9000/ws/chat"

[sync]
pull_interval = "2s"

[reconnect]
max_attempts = 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:8001", cfg.Server.URL)
	assert.Equal(t, "ws://10.0.0.5:9000/ws/chat", cfg.Server.WSURL)
	assert.Equal(t, 2*time.Second, cfg.Sync.PullInterval)
	assert.Equal(t, 0, cfg.Reconnect.MaxAttempts)
	// Unset keys keep defaults
	assert.Equal(t, 30*time.Second, cfg.Sync.SafetyInterval)
}

func TestLoad_MinimalKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "config.yaml", `
server:
  url: "http://localhost:8001"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Sync.PullInterval, cfg.Sync.PullInterval)
	assert.Equal(t, def.Sync.SafetyInterval, cfg.Sync.SafetyInterval)
	assert.Equal(t, def.Reconnect, cfg.Reconnect)
	assert.Equal(t, "ws://localhost:8001/ws/chat", cfg.Server.WSURL)
	assert.NotEmpty(t, cfg.Storage.Path)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_CHAT_HOST", "chat.internal")
	path := writeConfig(t, "config.yaml", `
server:
  url: "http://${TEST_CHAT_HOST}:8001"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://chat.internal:8001", cfg.Server.URL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANONCHAT_SERVER_URL", "https://override.example.com")
	t.Setenv("ANONCHAT_DATA_PATH", "/var/tmp/override.db")
	t.Setenv("ANONCHAT_LOG_LEVEL", "warn")
	path := writeConfig(t, "config.yaml", `
server:
  url: "http://localhost:8001"
logging:
  level: "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com", cfg.Server.URL)
	assert.Equal(t, "wss://override.example.com/ws/chat", cfg.Server.WSURL)
	assert.Equal(t, "/var/tmp/override.db", cfg.Storage.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad yaml", "c.yaml", "server: [", "parsing config file"},
		{"bad toml", "c.toml", "[server\nurl=", "parsing config file"},
		{"bad duration", "c.yaml", "sync:\n  pull_interval: \"soon\"\n", "pull_interval"},
		{"bad scheme", "c.yaml", "server:\n  url: \"ftp://x\"\n", "http or https"},
		{"bad ws scheme", "c.yaml", "server:\n  url: \"http://x\"\n  ws_url: \"http://x/ws\"\n", "ws or wss"},
		{"pull slower than safety", "c.yaml", "sync:\n  pull_interval: \"1m\"\n  safety_interval: \"10s\"\n", "must not exceed"},
		{"backoff inverted", "c.yaml", "reconnect:\n  initial_backoff: \"1m\"\n  max_backoff: \"1s\"\n", "max_backoff"},
		{"zero interval", "c.yaml", "sync:\n  keepalive_interval: \"0s\"\n", "keepalive_interval must be positive"},
		{"bad level", "c.yaml", "logging:\n  level: \"loud\"\n", "logging.level"},
		{"bad format", "c.yaml", "logging:\n  format: \"xml\"\n", "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "reading config file"))
}

func TestResolve_FallsBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, cfg.Server.URL)
	assert.Equal(t, "ws://localhost:8001/ws/chat", cfg.Server.WSURL)
}

func TestResolve_UsesDefaultConfigPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "anonchat"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anonchat", "config.yaml"),
		[]byte("server:\n  url: \"http://from-file:8001\"\n"), 0644))

	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "http://from-file:8001", cfg.Server.URL)
}

func TestDeriveWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8001/ws/chat", DeriveWSURL("http://localhost:8001"))
	assert.Equal(t, "wss://chat.example.com/ws/chat", DeriveWSURL("https://chat.example.com/"))
}

func TestDefaultDataPath_XDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	assert.Equal(t, filepath.Join("/data", "anonchat", "anonchat.db"), DefaultDataPath())
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	cfg.Normalize()
	assert.NoError(t, cfg.Validate())
}
