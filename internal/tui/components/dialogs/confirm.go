package dialogs

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

// ConfirmedMsg is sent when the user accepts a confirmation. ID is the
// value the dialog was opened with.
type ConfirmedMsg struct {
	ID string
}

// ConfirmDialog asks a yes/no question
type ConfirmDialog struct {
	theme    themes.Theme
	id       string
	question string
	width    int
}

// NewConfirmDialog creates a confirmation for id
func NewConfirmDialog(theme themes.Theme, id, question string) *ConfirmDialog {
	return &ConfirmDialog{theme: theme, id: id, question: question}
}

func (c *ConfirmDialog) Init() tea.Cmd {
	return nil
}

func (c *ConfirmDialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
	case tea.KeyMsg:
		switch strings.ToLower(msg.String()) {
		case "y", "enter":
			id := c.id
			return c, func() tea.Msg { return ConfirmedMsg{ID: id} }
		case "n", "esc", "q":
			return c, func() tea.Msg { return DialogCloseMsg{} }
		}
	}
	return c, nil
}

func (c *ConfirmDialog) View() string {
	width := min(max(c.width-4, 20), 50)
	body := lipgloss.JoinVertical(lipgloss.Center,
		c.theme.Base().Width(width-4).Align(lipgloss.Center).Render(c.question),
		"",
		c.theme.MutedText().Render("y: confirm • n/esc: cancel"),
	)
	return c.theme.DialogStyle().Width(width).Render(body)
}
