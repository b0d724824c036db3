package dialogs

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

// HelpSection is a titled group of key bindings
type HelpSection struct {
	Title    string
	Bindings []key.Binding
}

// HelpDialog displays keyboard shortcuts
type HelpDialog struct {
	theme    themes.Theme
	sections []HelpSection
	width    int
	height   int
}

// NewHelpDialog creates a new help dialog
func NewHelpDialog(theme themes.Theme, sections []HelpSection) *HelpDialog {
	return &HelpDialog{
		theme:    theme,
		sections: sections,
	}
}

func (h *HelpDialog) Init() tea.Cmd {
	return nil
}

func (h *HelpDialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = msg.Width
		h.height = msg.Height

	case tea.KeyMsg:
		// Any key closes the help dialog
		return h, func() tea.Msg { return DialogCloseMsg{} }
	}

	return h, nil
}

func (h *HelpDialog) View() string {
	if h.width == 0 || h.height == 0 {
		return ""
	}

	dialogWidth := min(h.width-4, 60)
	dialogHeight := min(h.height-2, 30)

	var content strings.Builder

	titleStyle := h.theme.DialogTitleStyle().Width(dialogWidth - 4).Align(lipgloss.Center)
	content.WriteString(titleStyle.Render("Keyboard Shortcuts"))
	content.WriteString("\n")

	for i, section := range h.sections {
		if i > 0 {
			content.WriteString("\n")
		}

		sectionStyle := h.theme.SecondaryText().Bold(true)
		content.WriteString(sectionStyle.Render(section.Title))
		content.WriteString("\n")

		for _, binding := range section.Bindings {
			if !binding.Enabled() {
				continue
			}
			help := binding.Help()
			keyStyle := h.theme.PrimaryText().Width(15)
			descStyle := h.theme.Base()

			line := lipgloss.JoinHorizontal(
				lipgloss.Top,
				keyStyle.Render(help.Key),
				descStyle.Render(help.Desc),
			)
			content.WriteString("  " + line + "\n")
		}
	}

	content.WriteString("\n")
	footerStyle := h.theme.MutedText().Width(dialogWidth - 4).Align(lipgloss.Center)
	content.WriteString(footerStyle.Render("Press any key to close"))

	dialogStyle := h.theme.DialogStyle().
		Width(dialogWidth).
		MaxWidth(dialogWidth).
		MaxHeight(dialogHeight)

	return dialogStyle.Render(content.String())
}
