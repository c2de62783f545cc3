package config

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Backend defaults
	cfg.Backend.StreamBase = "wss://chat.lexibot.dev"
	cfg.Backend.APIBase = "https://api.lexibot.dev"
	cfg.Backend.TimeoutSeconds = 15

	// Chat defaults
	cfg.Chat.Mode = "chat"
	cfg.Chat.ContextItems = 0
	cfg.Chat.Testing = false

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	cfg.Logging.Path = ""

	return cfg
}
