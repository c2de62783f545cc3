// Package config provides configuration management for the lexibot CLI.
//
// Configuration Sources (priority order, high to low):
//   1. CLI flags (highest priority, applied by the command layer)
//   2. Environment variables (LEXIBOT_* prefix)
//   3. YAML config file (default: ~/.config/lexibot/config.yaml)
//   4. Built-in defaults (lowest priority)
package config

import "context"

// Config contains all configuration fields.
type Config struct {
	// Backend addresses the remote bot.
	Backend struct {
		// StreamBase is the websocket base address for chat connections,
		// e.g. wss://chat.lexibot.dev. One connection target exists per
		// team/bot pair; it is derived per question, never persisted.
		StreamBase string
		// APIBase is the REST base address used for rating calls.
		APIBase string
		TeamID  string
		BotID   string
		// Signature authenticates against private bots. Empty for public
		// bots.
		Signature string
		// TimeoutSeconds bounds rating calls and the websocket dial.
		TimeoutSeconds int
	}

	// Chat controls session behavior.
	Chat struct {
		// Mode is "ask", "chat" or "research".
		Mode string
		// ContextItems overrides the research-mode citation count.
		ContextItems int
		// Testing marks questions from an identified operator so the
		// backend excludes them from usage counters.
		Testing bool
	}

	// Identity is attached to outbound requests when known.
	Identity struct {
		Name  string
		Email string
	}

	// Logging configuration
	Logging struct {
		Level  string // debug | info | warn | error
		Format string // console | json
		// Path enables rotated file logging when set.
		Path string
	}
}

// Manager defines the interface for configuration access.
type Manager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration changes and reloads.
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources.
	Reload(ctx context.Context) error
}

// NewManager creates a configuration manager reading from configPath.
func NewManager(configPath string) Manager {
	return &viperManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
}
