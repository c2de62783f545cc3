package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, m.Load(context.Background()))

	cfg := m.Get(context.Background())
	assert.Equal(t, "wss://chat.lexibot.dev", cfg.Backend.StreamBase)
	assert.Equal(t, "chat", cfg.Chat.Mode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 15, cfg.Backend.TimeoutSeconds)
}

func TestLoad_FromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
backend:
  stream_base: wss://chat.example.com
  api_base: https://api.example.com
  team_id: team42
  bot_id: support
chat:
  mode: research
  context_items: 25
identity:
  name: Ada
  email: ada@example.com
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m := NewManager(path)
	require.NoError(t, m.Load(context.Background()))

	cfg := m.Get(context.Background())
	assert.Equal(t, "wss://chat.example.com", cfg.Backend.StreamBase)
	assert.Equal(t, "team42", cfg.Backend.TeamID)
	assert.Equal(t, "research", cfg.Chat.Mode)
	assert.Equal(t, 25, cfg.Chat.ContextItems)
	assert.Equal(t, "Ada", cfg.Identity.Name)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep defaults.
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_SignatureEnvOverride(t *testing.T) {
	t.Setenv("LEXIBOT_SIGNATURE", "env-sig")

	m := NewManager(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, m.Load(context.Background()))
	assert.Equal(t, "env-sig", m.Get(context.Background()).Backend.Signature)
}

func TestReload_PicksUpFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644))

	m := NewManager(path)
	require.NoError(t, m.Load(context.Background()))
	require.Equal(t, "info", m.Get(context.Background()).Logging.Level)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\nidentity:\n  name: Ada\n"), 0o644))
	require.NoError(t, m.Reload(context.Background()))

	cfg := m.Get(context.Background())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "Ada", cfg.Identity.Name)
}

func TestReload_KeepsEnvOverride(t *testing.T) {
	t.Setenv("LEXIBOT_SIGNATURE", "env-sig")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  signature: file-sig\n"), 0o644))

	m := NewManager(path)
	require.NoError(t, m.Load(context.Background()))
	require.NoError(t, m.Reload(context.Background()))
	assert.Equal(t, "env-sig", m.Get(context.Background()).Backend.Signature)
}

func TestWatch_DeliversUpdatedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644))

	m := NewManager(path)
	require.NoError(t, m.Load(context.Background()))
	updates := m.Watch(context.Background())

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644))

	// The watcher may fire more than once per write; wait for the final
	// content to come through.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-updates:
			if cfg.Logging.Level == "warn" {
				return
			}
		case <-deadline:
			t.Fatal("no config update observed after file change")
		}
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.StreamBase = "http://wrong-scheme"
	cfg.Backend.APIBase = ""
	cfg.Chat.Mode = "turbo"
	cfg.Logging.Level = "loud"

	errs := cfg.Validate()
	require.NotEmpty(t, errs)

	fields := make(map[string]bool)
	for _, err := range errs {
		verr, ok := err.(*ValidationError)
		require.True(t, ok)
		fields[verr.Field] = true
	}
	assert.True(t, fields["backend.stream_base"])
	assert.True(t, fields["backend.api_base"])
	assert.True(t, fields["chat.mode"])
	assert.True(t, fields["logging.level"])
	// Team/bot are required too.
	assert.True(t, fields["backend.team_id"])
	assert.True(t, fields["backend.bot_id"])
}

func TestValidate_ValidConfigPasses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.TeamID = "team1"
	cfg.Backend.BotID = "bot1"
	assert.Empty(t, cfg.Validate())
}
