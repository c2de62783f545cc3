package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexibot/lexibot-go/internal/config"
	"github.com/lexibot/lexibot-go/internal/logging"
	"github.com/lexibot/lexibot-go/pkg/chat"
	"github.com/lexibot/lexibot-go/pkg/wire"
)

var (
	version string
	commit  string
	date    string
)

var (
	flagConfig  string
	flagTeam    string
	flagBot     string
	flagVerbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lexibot",
	Short: "Lexibot - terminal client for documentation-trained chat bots",
	Long: `Lexibot drives a conversation against a documentation-trained chat bot.

Each question opens one streaming connection, renders the answer as it
arrives, and settles on the canonical answer with its citations. Answers
can be rated up or down after they settle.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default ~/.config/lexibot/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagTeam, "team", "", "Team identifier (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagBot, "bot", "", "Bot identifier (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// loadConfig resolves the config file, applies flag overrides and validates.
// The manager is returned so long-lived commands can watch for changes.
func loadConfig(ctx context.Context) (*config.Config, config.Manager, error) {
	path := flagConfig
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, ".config", "lexibot", "config.yaml")
	}

	mgr := config.NewManager(path)
	if err := mgr.Load(ctx); err != nil {
		return nil, nil, err
	}

	cfg := mgr.Get(ctx)
	if flagTeam != "" {
		cfg.Backend.TeamID = flagTeam
	}
	if flagBot != "" {
		cfg.Backend.BotID = flagBot
	}
	if flagVerbose {
		cfg.Logging.Level = "debug"
	}

	if err := mgr.Validate(ctx); err != nil {
		return nil, nil, err
	}
	return cfg, mgr, nil
}

// newLogger builds the CLI logger from config, returning the atomic level
// for runtime adjustment.
func newLogger(cfg *config.Config) (*zap.Logger, zap.AtomicLevel, error) {
	opts := logging.DefaultOptions()
	opts.Level = cfg.Logging.Level
	opts.Format = cfg.Logging.Format
	opts.Path = cfg.Logging.Path
	return logging.NewWithLevel(opts)
}

// newClient wires a chat client from config.
func newClient(cfg *config.Config, mode chat.Mode, log *zap.Logger, hooks chat.Hooks) (*chat.Client, error) {
	return chat.New(chat.Options{
		StreamBase:   cfg.Backend.StreamBase,
		APIBase:      cfg.Backend.APIBase,
		TeamID:       cfg.Backend.TeamID,
		BotID:        cfg.Backend.BotID,
		Signature:    cfg.Backend.Signature,
		Identity:     wire.Metadata{Name: cfg.Identity.Name, Email: cfg.Identity.Email},
		Testing:      cfg.Chat.Testing,
		Mode:         mode,
		ContextItems: cfg.Chat.ContextItems,
		Timeout:      time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		Logger:       log,
		Hooks:        hooks,
	})
}
