// Package config handles configuration loading for the anonchat client.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion, then overridden by ANONCHAT_* environment variables. Every key is
// optional: anything the file leaves out keeps the value from Default.
//
// # Configuration File
//
// Locations (in order):
//
//  1. Path given with --config
//  2. $XDG_CONFIG_HOME/anonchat/config.yaml
//  3. ~/.config/anonchat/config.yaml
//
// Files ending in .toml are decoded as TOML; anything else as YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	server:
//	  url: "https://${CHAT_HOST}"
//
// # Environment Overrides
//
//	ANONCHAT_SERVER_URL   server.url
//	ANONCHAT_WS_URL       server.ws_url
//	ANONCHAT_DATA_PATH    storage.path
//	ANONCHAT_LOG_LEVEL    logging.level
//	ANONCHAT_LOG_FORMAT   logging.format
//
// # Configuration Sections
//
//	server:
//	  url: "http://localhost:8001"    # REST API base
//	  ws_url: ""                      # defaults to ws(s)://<host>/ws/chat
//
//	storage:
//	  path: "~/.local/share/anonchat/anonchat.db"
//
//	sync:
//	  pull_interval: "5s"             # pull period while push is down
//	  safety_interval: "30s"          # pull period while push is up
//	  staleness_threshold: "20s"      # show "connection lost" after this
//	  handshake_timeout: "10s"
//	  keepalive_interval: "25s"
//	  tombstone_ttl: "2m"             # how long cleared ids stay suppressed
//
//	reconnect:
//	  initial_backoff: "1s"
//	  max_backoff: "30s"
//	  multiplier: 2
//	  max_attempts: 6                 # then settle into pull-only; 0 = never
//
//	logging:
//	  level: "info"                   # debug, info, warn, error
//	  format: "text"                  # text or json
//
// Duration values use Go's time.ParseDuration syntax.
package config
