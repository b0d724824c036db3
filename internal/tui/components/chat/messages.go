package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/transcript"
	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

// Empty-state texts
const (
	NoChat      = "Upload a PDF (ctrl+o) or pick a chat from the sidebar to start."
	NoMessages  = "Ask a question about the document."
	ThinkingMsg = "Analyzing document..."
)

// Content is what the transcript view shows
type Content struct {
	ChatID   string
	Messages []api.Message
	Expanded func(i int) bool
	Loading  bool
}

// MessagesView renders the transcript in a scrollable viewport
type MessagesView struct {
	theme    themes.Theme
	viewport viewport.Model
	markdown *MarkdownRenderer
	spinner  spinner.Model
	width    int
	height   int
	content  Content
}

// NewMessagesView creates an empty transcript view
func NewMessagesView(th themes.Theme) *MessagesView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = th.PrimaryText()
	return &MessagesView{
		theme:    th,
		viewport: viewport.New(0, 0),
		markdown: NewMarkdownRenderer(th.MarkdownStyle(), 80),
		spinner:  sp,
	}
}

// SetSize resizes the view
func (m *MessagesView) SetSize(width, height int) {
	if width == m.width && height == m.height {
		return
	}
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.markdown.SetWidth(width - 2)
	m.refresh(false)
}

// SetContent replaces what is shown. The view follows the bottom when the
// transcript grows. The returned command drives the loading spinner.
func (m *MessagesView) SetContent(c Content) tea.Cmd {
	grew := c.ChatID != m.content.ChatID || len(c.Messages) != len(m.content.Messages) || c.Loading != m.content.Loading
	startSpinner := c.Loading && !m.content.Loading
	m.content = c
	m.refresh(grew)
	if startSpinner {
		return m.spinner.Tick
	}
	return nil
}

func (m *MessagesView) refresh(toBottom bool) {
	m.viewport.SetContent(m.render())
	if toBottom {
		m.viewport.GotoBottom()
	}
}

// Update handles scrolling and the spinner
func (m *MessagesView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.content.Loading {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh(false)
		return cmd
	case tea.KeyMsg, tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

// View renders the viewport
func (m *MessagesView) View() string {
	return m.viewport.View()
}

func (m *MessagesView) render() string {
	width := max(m.width-2, 10)
	if m.content.ChatID == "" && len(m.content.Messages) == 0 {
		return m.theme.MutedText().Width(width).Render(NoChat)
	}
	if len(m.content.Messages) == 0 && !m.content.Loading {
		return m.theme.MutedText().Width(width).Render(NoMessages)
	}

	blocks := make([]string, 0, len(m.content.Messages)+1)
	for i, msg := range m.content.Messages {
		blocks = append(blocks, m.renderMessage(i, msg, width))
	}
	if m.content.Loading {
		blocks = append(blocks, m.spinner.View()+" "+m.theme.MutedText().Render(ThinkingMsg))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *MessagesView) renderMessage(i int, msg api.Message, width int) string {
	body := lipgloss.NewStyle().Width(width)
	if msg.Role == api.RoleUser {
		return m.theme.UserLabel().Render("You") + "\n" + body.Render(msg.Content)
	}

	var b strings.Builder
	b.WriteString(m.theme.AssistantLabel().Render("Assistant"))
	b.WriteString("\n")
	if transcript.IsFailure(msg.Content) {
		b.WriteString(m.theme.ErrorText().Width(width).Render(msg.Content))
	} else {
		b.WriteString(m.markdown.Render(msg.Content))
	}

	if msg.HasReasoning() {
		b.WriteString("\n")
		expanded := m.content.Expanded != nil && m.content.Expanded(i)
		if expanded {
			b.WriteString(m.theme.MutedText().Render("▾ Reasoning"))
			b.WriteString("\n")
			b.WriteString(m.theme.Reasoning().Width(width - 2).Render(strings.TrimSpace(msg.Reasoning)))
		} else {
			b.WriteString(m.theme.MutedText().Render("▸ Reasoning (ctrl+r to expand)"))
		}
	}
	return b.String()
}
