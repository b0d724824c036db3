package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pdfretriever/pdfretriever/internal/analysis"
	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/chats"
)

var (
	assumeYes   bool
	showDetails string
)

var chatsCmd = &cobra.Command{
	Use:     "chats",
	Aliases: []string{"chat"},
	Short:   "Browse and manage chat history",
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chats, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(cmd.Context()); err != nil {
			return err
		}
		items := pdfApp.Chats.Items()
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No chats yet")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "TITLE", "FILE", "CREATED")
		for _, c := range items {
			created := ""
			if !c.CreatedAt.IsZero() {
				created = humanize.Time(c.CreatedAt)
			}
			t.Row(c.ChatID, chats.Label(c), c.FileName, created)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var chatsShowCmd = &cobra.Command{
	Use:   "show <chat-id>",
	Short: "Print a chat transcript and its analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireLogin(ctx); err != nil {
			return err
		}
		if err := pdfApp.Workspace.SelectChat(ctx, args[0]); err != nil {
			return describe(err)
		}
		snap := pdfApp.Workspace.Snapshot()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, titleStyle.Render(snap.FileName))
		fmt.Fprintln(out, mutedStyle.Render(analysis.Summary(snap.ProcessedData)))
		if snap.FromCache {
			fmt.Fprintln(out, mutedStyle.Render("Offline copy from "+humanize.Time(snap.CachedAt)))
		}

		if tab, ok := analysisTab(showDetails); ok {
			fmt.Fprintln(out)
			fmt.Fprintln(out, analysis.Render(snap.ProcessedData, tab, 100, analysis.DefaultStyles()))
		}

		for _, m := range pdfApp.Transcript.Messages() {
			fmt.Fprintln(out)
			printMessage(cmd, m, false)
		}
		return nil
	},
}

var chatsDeleteCmd = &cobra.Command{
	Use:   "delete <chat-id>",
	Short: "Delete a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireLogin(ctx); err != nil {
			return err
		}
		label := args[0]
		if c, ok := pdfApp.Chats.Find(args[0]); ok {
			label = chats.Label(c)
		}

		if !assumeYes {
			fmt.Fprintf(cmd.ErrOrStderr(), "Delete %q? This cannot be undone. [y/N] ", label)
			answer, err := readLine(bufio.NewReader(cmd.InOrStdin()))
			if err != nil || !strings.EqualFold(strings.TrimSpace(answer), "y") {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
		}

		if err := pdfApp.DeleteChat(ctx, args[0]); err != nil {
			return describe(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %q\n", okStyle.Render("✓"), label)
		return nil
	},
}

func init() {
	chatsShowCmd.Flags().StringVar(&showDetails, "analysis", "", "Also print extracted tables or insights (tables|insights)")
	chatsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	chatsCmd.AddCommand(chatsListCmd, chatsShowCmd, chatsDeleteCmd)
	rootCmd.AddCommand(chatsCmd)
}

func analysisTab(name string) (analysis.Tab, bool) {
	switch strings.ToLower(name) {
	case "tables", "results":
		return analysis.TabResults, true
	case "insights", "media":
		return analysis.TabInsights, true
	}
	return 0, false
}

func printMessage(cmd *cobra.Command, m api.Message, reasoning bool) {
	out := cmd.OutOrStdout()
	if m.Role == api.RoleUser {
		fmt.Fprintln(out, titleStyle.Render("You:")+" "+m.Content)
		return
	}
	fmt.Fprintln(out, titleStyle.Render("Assistant:"))
	fmt.Fprintln(out, renderMarkdown(m.Content))
	if reasoning && m.HasReasoning() {
		fmt.Fprintln(out, mutedStyle.Render("Reasoning:"))
		fmt.Fprintln(out, mutedStyle.Render(m.Reasoning))
	}
}
