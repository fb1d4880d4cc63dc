// ABOUTME: Configuration loading and parsing for the anonchat client
// ABOUTME: Supports YAML or TOML files with environment variable expansion, env overrides, and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultServerURL is the chat server's development address.
const DefaultServerURL = "http://localhost:8001"

// Config represents the complete anonchat configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Sync      SyncConfig      `yaml:"sync" toml:"sync"`
	Reconnect ReconnectConfig `yaml:"reconnect" toml:"reconnect"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ServerConfig holds the chat server's addresses
type ServerConfig struct {
	URL string `yaml:"url" toml:"url" env:"ANONCHAT_SERVER_URL"`
	// WSURL is derived from URL when empty
	WSURL string `yaml:"ws_url" toml:"ws_url" env:"ANONCHAT_WS_URL"`
}

// StorageConfig holds local persistence configuration
type StorageConfig struct {
	Path string `yaml:"path" toml:"path" env:"ANONCHAT_DATA_PATH"`
}

// SyncConfig holds push/pull timing configuration
type SyncConfig struct {
	PullInterval       time.Duration `yaml:"-" toml:"-"`
	SafetyInterval     time.Duration `yaml:"-" toml:"-"`
	StalenessThreshold time.Duration `yaml:"-" toml:"-"`
	HandshakeTimeout   time.Duration `yaml:"-" toml:"-"`
	KeepaliveInterval  time.Duration `yaml:"-" toml:"-"`
	TombstoneTTL       time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	PullIntervalRaw       string `yaml:"pull_interval" toml:"pull_interval"`
	SafetyIntervalRaw     string `yaml:"safety_interval" toml:"safety_interval"`
	StalenessThresholdRaw string `yaml:"staleness_threshold" toml:"staleness_threshold"`
	HandshakeTimeoutRaw   string `yaml:"handshake_timeout" toml:"handshake_timeout"`
	KeepaliveIntervalRaw  string `yaml:"keepalive_interval" toml:"keepalive_interval"`
	TombstoneTTLRaw       string `yaml:"tombstone_ttl" toml:"tombstone_ttl"`
}

// ReconnectConfig holds push reconnect backoff configuration
type ReconnectConfig struct {
	InitialBackoff time.Duration `yaml:"-" toml:"-"`
	MaxBackoff     time.Duration `yaml:"-" toml:"-"`
	Multiplier     float64       `yaml:"multiplier" toml:"multiplier"`
	MaxAttempts    int           `yaml:"max_attempts" toml:"max_attempts"`

	InitialBackoffRaw string `yaml:"initial_backoff" toml:"initial_backoff"`
	MaxBackoffRaw     string `yaml:"max_backoff" toml:"max_backoff"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"ANONCHAT_LOG_LEVEL"`
	Format string `yaml:"format" toml:"format" env:"ANONCHAT_LOG_FORMAT"`
}

// Default returns a configuration that talks to a local development server.
func Default() *Config {
	return &Config{
		Server: ServerConfig{URL: DefaultServerURL},
		Storage: StorageConfig{
			Path: DefaultDataPath(),
		},
		Sync: SyncConfig{
			PullInterval:       5 * time.Second,
			SafetyInterval:     30 * time.Second,
			StalenessThreshold: 20 * time.Second,
			HandshakeTimeout:   10 * time.Second,
			KeepaliveInterval:  25 * time.Second,
			TombstoneTTL:       2 * time.Minute,
		},
		Reconnect: ReconnectConfig{
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2,
			MaxAttempts:    6,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, unset keys
// keep their defaults, and ANONCHAT_* variables override the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	return finish(cfg)
}

// Resolve loads path if given. With an empty path it loads DefaultConfigPath
// when that file exists and otherwise starts from Default. Env overrides and
// validation apply either way.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if def := DefaultConfigPath(); def != "" {
		if _, err := os.Stat(def); err == nil {
			return Load(def)
		}
	}
	return finish(Default())
}

func finish(cfg *Config) (*Config, error) {
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with ANONCHAT_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Normalize trims the server URL and derives the websocket URL and storage
// path when they are empty.
func (c *Config) Normalize() {
	c.Server.URL = strings.TrimRight(strings.TrimSpace(c.Server.URL), "/")
	if c.Server.WSURL == "" && c.Server.URL != "" {
		c.Server.WSURL = DeriveWSURL(c.Server.URL)
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultDataPath()
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// DeriveWSURL maps an http(s) server URL onto its push endpoint:
// http://host:8001 becomes ws://host:8001/ws/chat.
func DeriveWSURL(serverURL string) string {
	base := strings.TrimRight(serverURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/chat"
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.url must use http or https scheme")
	}
	if c.Server.WSURL != "" {
		w, err := url.Parse(c.Server.WSURL)
		if err != nil {
			return fmt.Errorf("server.ws_url is not a valid URL: %w", err)
		}
		if w.Scheme != "ws" && w.Scheme != "wss" {
			return fmt.Errorf("server.ws_url must use ws or wss scheme")
		}
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	positive := []struct {
		name string
		d    time.Duration
	}{
		{"sync.pull_interval", c.Sync.PullInterval},
		{"sync.safety_interval", c.Sync.SafetyInterval},
		{"sync.staleness_threshold", c.Sync.StalenessThreshold},
		{"sync.handshake_timeout", c.Sync.HandshakeTimeout},
		{"sync.keepalive_interval", c.Sync.KeepaliveInterval},
		{"sync.tombstone_ttl", c.Sync.TombstoneTTL},
		{"reconnect.initial_backoff", c.Reconnect.InitialBackoff},
		{"reconnect.max_backoff", c.Reconnect.MaxBackoff},
	}
	for _, p := range positive {
		if p.d <= 0 {
			return fmt.Errorf("%s must be positive", p.name)
		}
	}

	if c.Sync.PullInterval > c.Sync.SafetyInterval {
		return fmt.Errorf("sync.pull_interval (%s) must not exceed sync.safety_interval (%s)",
			c.Sync.PullInterval, c.Sync.SafetyInterval)
	}
	if c.Reconnect.MaxBackoff < c.Reconnect.InitialBackoff {
		return fmt.Errorf("reconnect.max_backoff (%s) must not be below reconnect.initial_backoff (%s)",
			c.Reconnect.MaxBackoff, c.Reconnect.InitialBackoff)
	}
	if c.Reconnect.Multiplier < 1 {
		return fmt.Errorf("reconnect.multiplier must be at least 1")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must not be negative")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not text or json", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
// Empty strings leave the current value in place.
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"pull_interval", cfg.Sync.PullIntervalRaw, &cfg.Sync.PullInterval},
		{"safety_interval", cfg.Sync.SafetyIntervalRaw, &cfg.Sync.SafetyInterval},
		{"staleness_threshold", cfg.Sync.StalenessThresholdRaw, &cfg.Sync.StalenessThreshold},
		{"handshake_timeout", cfg.Sync.HandshakeTimeoutRaw, &cfg.Sync.HandshakeTimeout},
		{"keepalive_interval", cfg.Sync.KeepaliveIntervalRaw, &cfg.Sync.KeepaliveInterval},
		{"tombstone_ttl", cfg.Sync.TombstoneTTLRaw, &cfg.Sync.TombstoneTTL},
		{"initial_backoff", cfg.Reconnect.InitialBackoffRaw, &cfg.Reconnect.InitialBackoff},
		{"max_backoff", cfg.Reconnect.MaxBackoffRaw, &cfg.Reconnect.MaxBackoff},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/anonchat/config.yaml, falling
// back to ~/.config. It returns "" when no home directory is known.
func DefaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "anonchat", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "anonchat", "config.yaml")
}

// DefaultDataPath returns $XDG_DATA_HOME/anonchat/anonchat.db, falling back
// to ~/.local/share, then the working directory.
func DefaultDataPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "anonchat", "anonchat.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "anonchat.db"
	}
	return filepath.Join(home, ".local", "share", "anonchat", "anonchat.db")
}
