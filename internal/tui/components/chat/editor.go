package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

// SubmitMsg is sent when the user submits a question
type SubmitMsg struct {
	Text string
}

// EditorState decides whether questions can be sent
type EditorState int

const (
	EditorReady EditorState = iota
	EditorNoChat
	EditorNoKey
	EditorBusy
)

var placeholders = map[EditorState]string{
	EditorReady:  "Ask about the document... (enter to send, alt+enter for new line)",
	EditorNoChat: "Upload or select a document first",
	EditorNoKey:  "Set your API key (ctrl+s) to ask questions",
	EditorBusy:   "Waiting for the answer...",
}

type editorKeyMap struct {
	Send    key.Binding
	NewLine key.Binding
}

var editorKeys = editorKeyMap{
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send question"),
	),
	NewLine: key.NewBinding(
		key.WithKeys("alt+enter", "ctrl+j"),
		key.WithHelp("alt+enter", "new line"),
	),
}

// EditorModel is the question input
type EditorModel struct {
	width    int
	textarea textarea.Model
	theme    themes.Theme
	state    EditorState
}

// NewEditorModel creates the question input
func NewEditorModel(th themes.Theme) *EditorModel {
	ta := textarea.New()
	ta.Placeholder = placeholders[EditorReady]
	ta.CharLimit = 4000
	ta.SetWidth(80)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.KeyMap.InsertNewline.SetEnabled(false)

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = th.MutedText()
	ta.BlurredStyle.Placeholder = th.MutedText()
	ta.BlurredStyle.Text = th.MutedText()

	return &EditorModel{
		textarea: ta,
		theme:    th,
	}
}

// SetState updates the send gate and placeholder
func (m *EditorModel) SetState(state EditorState) {
	m.state = state
	m.textarea.Placeholder = placeholders[state]
}

// State returns the send gate
func (m *EditorModel) State() EditorState {
	return m.state
}

// Value is the current input
func (m *EditorModel) Value() string {
	return m.textarea.Value()
}

func (m *EditorModel) send() tea.Cmd {
	if m.state != EditorReady {
		return nil
	}
	value := strings.TrimSpace(m.textarea.Value())
	if value == "" {
		return nil
	}
	m.textarea.Reset()
	return func() tea.Msg { return SubmitMsg{Text: value} }
}

func (m *EditorModel) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok && m.textarea.Focused() {
		switch {
		case key.Matches(msg, editorKeys.NewLine):
			m.textarea.InsertString("\n")
			return nil
		case key.Matches(msg, editorKeys.Send):
			return m.send()
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return cmd
}

func (m *EditorModel) View() string {
	promptStyle := lipgloss.NewStyle().
		PaddingRight(1).
		Bold(true).
		Foreground(m.theme.Primary())
	if m.state != EditorReady {
		promptStyle = promptStyle.Foreground(m.theme.Muted())
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		promptStyle.Render(">"),
		m.textarea.View(),
	)
}

// SetWidth resizes the input
func (m *EditorModel) SetWidth(width int) {
	m.width = width
	m.textarea.SetWidth(max(width-2, 10))
}

// Height is the rendered height
func (m *EditorModel) Height() int {
	return m.textarea.Height()
}

func (m *EditorModel) Focus() tea.Cmd {
	return m.textarea.Focus()
}

func (m *EditorModel) Blur() {
	m.textarea.Blur()
}

func (m *EditorModel) Focused() bool {
	return m.textarea.Focused()
}
