package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	if c.Backend.StreamBase == "" {
		errs = append(errs, &ValidationError{
			Field:   "backend.stream_base",
			Message: "stream base address is required",
		})
	} else if !strings.HasPrefix(c.Backend.StreamBase, "ws://") && !strings.HasPrefix(c.Backend.StreamBase, "wss://") {
		errs = append(errs, &ValidationError{
			Field:   "backend.stream_base",
			Message: fmt.Sprintf("must be a ws:// or wss:// address, got %q", c.Backend.StreamBase),
		})
	}

	if c.Backend.APIBase == "" {
		errs = append(errs, &ValidationError{
			Field:   "backend.api_base",
			Message: "API base address is required",
		})
	} else if !strings.HasPrefix(c.Backend.APIBase, "http://") && !strings.HasPrefix(c.Backend.APIBase, "https://") {
		errs = append(errs, &ValidationError{
			Field:   "backend.api_base",
			Message: fmt.Sprintf("must be an http:// or https:// address, got %q", c.Backend.APIBase),
		})
	}

	if c.Backend.TeamID == "" {
		errs = append(errs, &ValidationError{
			Field:   "backend.team_id",
			Message: "team identifier is required",
		})
	}
	if c.Backend.BotID == "" {
		errs = append(errs, &ValidationError{
			Field:   "backend.bot_id",
			Message: "bot identifier is required",
		})
	}

	if c.Backend.TimeoutSeconds <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "backend.timeout_seconds",
			Message: fmt.Sprintf("timeout must be positive, got %d", c.Backend.TimeoutSeconds),
		})
	}

	switch c.Chat.Mode {
	case "ask", "chat", "research":
	default:
		errs = append(errs, &ValidationError{
			Field:   "chat.mode",
			Message: fmt.Sprintf("mode must be ask, chat or research, got %q", c.Chat.Mode),
		})
	}

	if c.Chat.ContextItems < 0 {
		errs = append(errs, &ValidationError{
			Field:   "chat.context_items",
			Message: "context_items cannot be negative",
		})
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("level must be debug, info, warn or error, got %q", c.Logging.Level),
		})
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("format must be console or json, got %q", c.Logging.Format),
		})
	}

	return errs
}
