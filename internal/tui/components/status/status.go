package status

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
	"github.com/pdfretriever/pdfretriever/internal/workspace"
)

// Info is what the status bar reports
type Info struct {
	Username string
	State    workspace.State
	FileName string
	Hints    string
}

// Model is the single-line status bar
type Model struct {
	theme themes.Theme
	width int
	info  Info
}

// NewStatusBar creates a new status bar component
func NewStatusBar(th themes.Theme) *Model {
	return &Model{theme: th}
}

// SetWidth sets the width of the status bar
func (m *Model) SetWidth(width int) {
	m.width = width
}

// SetInfo replaces the reported values
func (m *Model) SetInfo(info Info) {
	m.info = info
}

// Height is the number of lines the bar occupies
func (m *Model) Height() int {
	return 1
}

func (m *Model) logo() string {
	return m.theme.StatusValue().Bold(true).Render("PDF Retriever")
}

func (m *Model) state() string {
	label := m.info.State.String()
	switch m.info.State {
	case workspace.Ready:
		if m.info.FileName != "" {
			label = "Analyzing: " + m.info.FileName
		}
	case workspace.Uploading:
		label = "Uploading " + m.info.FileName
	default:
		label = "No document"
	}
	return m.theme.StatusKey().Render(label)
}

// View renders the status bar
func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}

	left := m.logo() + m.state()
	var right []string
	if m.info.Hints != "" {
		right = append(right, m.theme.StatusKey().Render(m.info.Hints))
	}
	if m.info.Username != "" {
		right = append(right, m.theme.StatusValue().Render(m.info.Username))
	}
	rightView := strings.Join(right, "")

	bar := m.theme.StatusBar()
	inner := max(m.width-bar.GetHorizontalFrameSize(), 0)
	if lipgloss.Width(left) > inner {
		left = ansi.Truncate(left, inner, "…")
	}
	space := inner - lipgloss.Width(left) - lipgloss.Width(rightView)
	if space < 1 {
		rightView = ""
		space = max(inner-lipgloss.Width(left), 0)
	}
	spacer := m.theme.StatusKey().UnsetMarginRight().Render(strings.Repeat(" ", space))
	return bar.Width(m.width).MaxWidth(m.width).Render(left + spacer + rightView)
}
