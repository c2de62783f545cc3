package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	chatpkg "github.com/lexibot/lexibot-go/pkg/chat"
)

var chatResearch bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive multi-turn conversation",
	Long: `Start an interactive conversation with the configured bot.

Each question threads the history of the conversation so the bot keeps
context across turns.

Commands inside the session:
  /rate up|down     rate the last settled answer
  /sources [n]      show citations for the last answer (or expand one)
  /reset            clear the conversation and its history
  /quit             leave`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatResearch, "research", false, "Request larger citation sets")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, mgr, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log, level, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Live log-level reload while the session runs: edits to the config
	// file take effect without restarting the conversation.
	go func() {
		for updated := range mgr.Watch(ctx) {
			if lvl, perr := zapcore.ParseLevel(updated.Logging.Level); perr == nil {
				level.SetLevel(lvl)
			}
		}
	}()

	mode := chatpkg.ModeChat
	if chatResearch {
		mode = chatpkg.ModeResearch
	}

	dim := color.New(color.Faint)
	errc := color.New(color.FgRed)
	hooks := chatpkg.Hooks{
		OnProgress: func(status string) {
			dim.Fprintf(os.Stderr, "… %s\n", status)
		},
		OnAnswerDelta: func(fragment string, turn *chatpkg.AnswerTurn) {
			fmt.Print(fragment)
		},
	}

	client, err := newClient(cfg, mode, log, hooks)
	if err != nil {
		return err
	}

	color.New(color.Bold).Printf("Connected to %s/%s. Type a question, or /quit to leave.\n",
		cfg.Backend.TeamID, cfg.Backend.BotID)

	var last *chatpkg.AnswerTurn
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runSlashCommand(ctx, client, &last, line, errc); quit {
				return nil
			}
			continue
		}

		turn, err := client.Ask(ctx, line)
		if err != nil {
			if errors.Is(err, chatpkg.ErrBusy) {
				errc.Println("still answering the previous question")
				continue
			}
			errc.Println(err.Error())
			continue
		}
		fmt.Println()
		last = turn
		if len(turn.Sources) > 0 {
			dim.Printf("(%d sources, /sources to list)\n", len(turn.Sources))
		}
	}
}

// runSlashCommand handles in-session commands; it reports whether the
// session should end.
func runSlashCommand(ctx context.Context, client *chatpkg.Client, last **chatpkg.AnswerTurn, line string, errc *color.Color) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/reset":
		client.Reset()
		*last = nil
		fmt.Println("conversation cleared")

	case "/rate":
		if *last == nil || (*last).AnswerID == "" {
			errc.Println("no settled answer to rate")
			return false
		}
		value := chatpkg.RatingUp
		if len(fields) > 1 && fields[1] == "down" {
			value = chatpkg.RatingDown
		}
		if err := client.Rate(ctx, (*last).AnswerID, value); err != nil {
			errc.Println(err.Error())
			return false
		}
		fmt.Println("rating saved")

	case "/sources":
		if *last == nil {
			errc.Println("no settled answer yet")
			return false
		}
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 1 || n > len((*last).Sources) {
				errc.Println("no such source")
				return false
			}
			src := (*last).Sources[n-1]
			color.New(color.Bold).Println(src.Title)
			if src.URL != "" {
				fmt.Println(src.URL)
			}
			if src.Content != "" {
				fmt.Println(src.Content)
			}
			return false
		}
		printSources(*last)

	default:
		errc.Printf("unknown command %s\n", fields[0])
	}
	return false
}
