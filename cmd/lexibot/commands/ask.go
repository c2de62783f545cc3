package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lexibot/lexibot-go/pkg/chat"
)

var askResearch bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the settled answer",
	Long: `Ask a single question against the configured bot.

Fragments are printed as they stream in; once the session settles the
canonical answer replaces them and the citation list is shown.

Examples:
  lexibot ask "What is the refund policy?"

  # Larger citation set
  lexibot ask --research "Compare the pro and enterprise plans"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askResearch, "research", false, "Request a larger citation set")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	question := strings.Join(args, " ")

	cfg, _, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log, _, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	mode := chat.ModeAsk
	if askResearch {
		mode = chat.ModeResearch
	}

	dim := color.New(color.Faint)
	var streamed strings.Builder
	hooks := chat.Hooks{
		OnProgress: func(status string) {
			dim.Fprintf(os.Stderr, "… %s\n", status)
		},
		OnAnswerDelta: func(fragment string, turn *chat.AnswerTurn) {
			streamed.WriteString(fragment)
			fmt.Print(fragment)
		},
	}

	client, err := newClient(cfg, mode, log, hooks)
	if err != nil {
		return err
	}

	turn, err := client.Ask(ctx, question)
	if err != nil {
		return err
	}
	fmt.Println()

	// The streamed concatenation is only an approximation; reprint when the
	// canonical answer differs from what was echoed.
	if turn.Text != streamed.String() {
		fmt.Println()
		fmt.Println(turn.Text)
	}

	printSources(turn)
	return nil
}

// printSources lists the citation set attached to a settled answer.
func printSources(turn *chat.AnswerTurn) {
	if len(turn.Sources) == 0 {
		return
	}
	bold := color.New(color.Bold)
	fmt.Println()
	bold.Println("Sources:")
	for i, src := range turn.Sources {
		fmt.Printf("  %d. %s", i+1, src.Title)
		if src.Page > 0 {
			fmt.Printf(" (p. %d)", src.Page)
		}
		if src.URL != "" {
			fmt.Printf(" - %s", src.URL)
		}
		fmt.Println()
	}
}
