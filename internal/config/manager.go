package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// viperManager implements Manager using Viper.
type viperManager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// Load loads configuration from all sources.
func (m *viperManager) Load(ctx context.Context) error {
	m.viper = viper.New()

	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix("LEXIBOT")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	// The config file is optional; defaults plus env vars are enough.
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Not found via viper, use defaults.
		} else if os.IsNotExist(err) {
			// Not found via os, use defaults.
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	m.unmarshalConfig()
	m.applyEnvOverrides()

	return nil
}

// Get returns the current configuration.
func (m *viperManager) Get(ctx context.Context) *Config {
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperManager) Validate(ctx context.Context) error {
	errs := m.config.Validate()
	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
	}
	return nil
}

// Watch watches for configuration changes and reloads.
func (m *viperManager) Watch(ctx context.Context) <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		m.unmarshalConfig()
		select {
		case m.watchChan <- *m.config:
		default:
			// Channel full, skip this update.
		}
	})

	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperManager) Reload(ctx context.Context) error {
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	m.unmarshalConfig()
	m.applyEnvOverrides()

	return nil
}

// setDefaults sets default values in viper.
func (m *viperManager) setDefaults() {
	defaults := DefaultConfig()

	m.viper.SetDefault("backend.stream_base", defaults.Backend.StreamBase)
	m.viper.SetDefault("backend.api_base", defaults.Backend.APIBase)
	m.viper.SetDefault("backend.team_id", defaults.Backend.TeamID)
	m.viper.SetDefault("backend.bot_id", defaults.Backend.BotID)
	m.viper.SetDefault("backend.signature", defaults.Backend.Signature)
	m.viper.SetDefault("backend.timeout_seconds", defaults.Backend.TimeoutSeconds)

	m.viper.SetDefault("chat.mode", defaults.Chat.Mode)
	m.viper.SetDefault("chat.context_items", defaults.Chat.ContextItems)
	m.viper.SetDefault("chat.testing", defaults.Chat.Testing)

	m.viper.SetDefault("identity.name", defaults.Identity.Name)
	m.viper.SetDefault("identity.email", defaults.Identity.Email)

	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.path", defaults.Logging.Path)
}

// unmarshalConfig unmarshals viper config into the Config struct.
func (m *viperManager) unmarshalConfig() {
	cfg := &Config{}

	cfg.Backend.StreamBase = m.viper.GetString("backend.stream_base")
	cfg.Backend.APIBase = m.viper.GetString("backend.api_base")
	cfg.Backend.TeamID = m.viper.GetString("backend.team_id")
	cfg.Backend.BotID = m.viper.GetString("backend.bot_id")
	cfg.Backend.Signature = m.viper.GetString("backend.signature")
	cfg.Backend.TimeoutSeconds = m.viper.GetInt("backend.timeout_seconds")

	cfg.Chat.Mode = m.viper.GetString("chat.mode")
	cfg.Chat.ContextItems = m.viper.GetInt("chat.context_items")
	cfg.Chat.Testing = m.viper.GetBool("chat.testing")

	cfg.Identity.Name = m.viper.GetString("identity.name")
	cfg.Identity.Email = m.viper.GetString("identity.email")

	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Format = m.viper.GetString("logging.format")
	cfg.Logging.Path = m.viper.GetString("logging.path")

	m.config = cfg
}

// applyEnvOverrides applies environment variable overrides for sensitive
// data that should not live in the config file.
func (m *viperManager) applyEnvOverrides() {
	if sig := os.Getenv("LEXIBOT_SIGNATURE"); sig != "" {
		m.config.Backend.Signature = sig
	}
	if email := os.Getenv("LEXIBOT_IDENTITY_EMAIL"); email != "" {
		m.config.Identity.Email = email
	}
}
