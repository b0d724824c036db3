package toast

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdfretriever/pdfretriever/internal/notifications"
	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

// ChangedMsg is sent into the program when the active notifications change.
type ChangedMsg struct {
	Active []notifications.Notification
}

// Model renders the active notifications of a manager
type Model struct {
	manager *notifications.Manager
	theme   themes.Theme
}

// New creates a toast view over manager
func New(manager *notifications.Manager, th themes.Theme) *Model {
	return &Model{manager: manager, theme: th}
}

// Visible reports whether any toast is showing
func (m *Model) Visible() bool {
	return len(m.manager.Active()) > 0
}

func (m *Model) style(level notifications.NotificationLevel) (lipgloss.Style, lipgloss.Style) {
	switch level {
	case notifications.LevelError:
		return m.theme.ErrorStyle(), m.theme.ErrorText()
	case notifications.LevelSuccess:
		return m.theme.SuccessStyle(), m.theme.SuccessText()
	case notifications.LevelWarning:
		return m.theme.WarningStyle(), m.theme.WarningText()
	default:
		return m.theme.InfoStyle(), m.theme.PrimaryText()
	}
}

func (m *Model) renderSingleToast(n notifications.Notification, width int) string {
	box, accent := m.style(n.Level)

	maxWidth := max(24, min(48, width/3))
	contentWidth := max(maxWidth-4, 10)

	var content strings.Builder
	if n.Title != "" {
		content.WriteString(accent.Bold(true).Render(n.Title))
		content.WriteString("\n")
	}
	message := lipgloss.NewStyle()
	if lipgloss.Width(n.Message) > contentWidth {
		message = message.Width(contentWidth)
	}
	content.WriteString(message.Render(n.Message))

	return box.MaxWidth(maxWidth).Render(content.String())
}

// View stacks the active toasts, newest at the bottom. Empty when idle.
func (m *Model) View(width int) string {
	active := m.manager.Active()
	if len(active) == 0 {
		return ""
	}
	views := make([]string, 0, len(active))
	for _, n := range active {
		views = append(views, m.renderSingleToast(n, width))
	}
	return lipgloss.JoinVertical(lipgloss.Right, views...)
}
