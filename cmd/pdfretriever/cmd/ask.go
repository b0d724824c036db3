package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/pdfretriever/pdfretriever/internal/transcript"
)

var showReasoning bool

var askCmd = &cobra.Command{
	Use:   "ask <chat-id> <question>",
	Short: "Ask a question about an analysed document",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireLogin(ctx); err != nil {
			return err
		}
		if err := requireKey(); err != nil {
			return err
		}
		if err := pdfApp.Workspace.SelectChat(ctx, args[0]); err != nil {
			return describe(err)
		}

		question := strings.Join(args[1:], " ")
		if err := pdfApp.Transcript.SendQuery(ctx, question); err != nil && !errors.Is(err, transcript.ErrSuperseded) {
			return describe(err)
		}

		msgs := pdfApp.Transcript.Messages()
		if len(msgs) == 0 {
			return errors.New("no answer received")
		}
		last := msgs[len(msgs)-1]
		if transcript.IsFailure(last.Content) {
			return errors.New(last.Content)
		}
		printMessage(cmd, last, showReasoning)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the analysis server is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := pdfApp.Client.Health(cmd.Context()); err != nil {
			return fmt.Errorf("%s is not healthy: %w", pdfApp.Client.BaseURL(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s is healthy\n", okStyle.Render("✓"), pdfApp.Client.BaseURL())
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVarP(&showReasoning, "reasoning", "r", false, "Also print the model's reasoning")
	rootCmd.AddCommand(askCmd, healthCmd)
}

// renderMarkdown renders for a terminal and leaves piped output plain
func renderMarkdown(s string) string {
	if fi, err := os.Stdout.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		return s
	}
	out, err := glamour.Render(s, "auto")
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}
