package sidebar

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/chats"
	"github.com/pdfretriever/pdfretriever/internal/session"
	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

// SelectChatMsg asks to open a chat
type SelectChatMsg struct{ ID string }

// DeleteChatMsg asks to delete a chat; the caller confirms first
type DeleteChatMsg struct {
	ID    string
	Label string
}

// NewChatMsg asks to discard the active chat
type NewChatMsg struct{}

// RefreshMsg asks to re-fetch the chat list
type RefreshMsg struct{}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Delete  key.Binding
	New     key.Binding
	Filter  key.Binding
	Refresh key.Binding
	Clear   key.Binding
}

// Keys are the sidebar bindings, exported for the help dialog
var Keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous chat")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next chat")),
	Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open chat")),
	Delete:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete chat")),
	New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new chat")),
	Filter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter chats")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh list")),
	Clear:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),
}

// Bindings lists Keys for the help dialog
func Bindings() []key.Binding {
	return []key.Binding{Keys.Up, Keys.Down, Keys.Open, Keys.Delete, Keys.New, Keys.Filter, Keys.Refresh}
}

// Footer is the account information shown under the list
type Footer struct {
	Username string
	Model    string
	APIKey   string
}

// Model is the chat history sidebar
type Model struct {
	theme     themes.Theme
	width     int
	height    int
	focused   bool
	filter    textinput.Model
	filtering bool
	chats     []api.ChatSummary
	activeID  string
	cursor    int
	footer    Footer
	now       func() time.Time
}

// New creates an empty sidebar
func New(th themes.Theme) *Model {
	ti := textinput.New()
	ti.Placeholder = "filter"
	ti.Prompt = "/ "
	ti.CharLimit = 64
	return &Model{
		theme:  th,
		filter: ti,
		now:    time.Now,
	}
}

// SetSize resizes the sidebar
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.filter.Width = max(width-6, 4)
}

// SetChats replaces the listed chats and the highlighted active chat
func (m *Model) SetChats(items []api.ChatSummary, activeID string) {
	m.chats = items
	m.activeID = activeID
	m.clampCursor()
}

// SetFooter updates the account block
func (m *Model) SetFooter(f Footer) {
	m.footer = f
}

// Focus gives the sidebar keyboard input
func (m *Model) Focus() { m.focused = true }

// Blur releases keyboard input
func (m *Model) Blur() {
	m.focused = false
	m.filtering = false
	m.filter.Blur()
}

// Filtering reports whether the filter input has the keyboard
func (m *Model) Filtering() bool { return m.filtering }

// visible returns the filtered chats in display order: today first
func (m *Model) visible() chats.Groups {
	return chats.Group(chats.Filter(m.chats, m.filter.Value()), m.now())
}

func (m *Model) flat() []api.ChatSummary {
	g := m.visible()
	return append(append([]api.ChatSummary(nil), g.Today...), g.Previous...)
}

func (m *Model) clampCursor() {
	n := len(m.flat())
	m.cursor = max(0, min(m.cursor, n-1))
}

// Selected returns the chat under the cursor
func (m *Model) Selected() (api.ChatSummary, bool) {
	items := m.flat()
	if m.cursor < 0 || m.cursor >= len(items) {
		return api.ChatSummary{}, false
	}
	return items[m.cursor], true
}

func (m *Model) Update(msg tea.Msg) tea.Cmd {
	km, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return nil
	}

	if m.filtering {
		switch km.Type {
		case tea.KeyEsc:
			m.filtering = false
			m.filter.Blur()
			m.filter.SetValue("")
			m.clampCursor()
			return nil
		case tea.KeyEnter, tea.KeyDown, tea.KeyUp:
			m.filtering = false
			m.filter.Blur()
			return nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(km)
		m.cursor = 0
		return cmd
	}

	switch {
	case key.Matches(km, Keys.Up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(km, Keys.Down):
		m.cursor++
		m.clampCursor()
	case key.Matches(km, Keys.Open):
		if c, ok := m.Selected(); ok {
			return func() tea.Msg { return SelectChatMsg{ID: c.ChatID} }
		}
	case key.Matches(km, Keys.Delete):
		if c, ok := m.Selected(); ok {
			return func() tea.Msg { return DeleteChatMsg{ID: c.ChatID, Label: chats.Label(c)} }
		}
	case key.Matches(km, Keys.New):
		return func() tea.Msg { return NewChatMsg{} }
	case key.Matches(km, Keys.Refresh):
		return func() tea.Msg { return RefreshMsg{} }
	case key.Matches(km, Keys.Filter):
		m.filtering = true
		return m.filter.Focus()
	case key.Matches(km, Keys.Clear):
		m.filter.SetValue("")
		m.clampCursor()
	}
	return nil
}

func (m *Model) View() string {
	if m.width <= 0 {
		return ""
	}
	inner := max(m.width-2, 4)
	line := func(s string) string { return ansi.Truncate(s, inner, "…") }

	var top []string
	top = append(top, m.theme.PrimaryText().Bold(true).Render(line("PDF Retriever")))
	top = append(top, m.theme.SecondaryText().Render(line("+ New Chat (n)")))
	if m.filtering || m.filter.Value() != "" {
		top = append(top, m.filter.View())
	}
	top = append(top, "")

	groups := m.visible()
	var list []string
	index := 0
	section := func(title string, items []api.ChatSummary) {
		if len(items) == 0 {
			return
		}
		list = append(list, m.theme.MutedText().Bold(true).Render(title))
		for _, c := range items {
			list = append(list, m.renderItem(c, index, inner))
			index++
		}
		list = append(list, "")
	}
	section("TODAY", groups.Today)
	section("PREVIOUS", groups.Previous)
	if groups.Len() == 0 {
		empty := "No chats yet"
		if m.filter.Value() != "" {
			empty = "No matching chats"
		}
		list = append(list, m.theme.MutedText().Render(line(empty)))
	}

	bottom := []string{
		m.theme.MutedText().Render(strings.Repeat("─", inner)),
		m.theme.MutedText().Render("Model ") + m.theme.Base().Render(line(m.footer.Model)),
		m.theme.MutedText().Render("Key   ") + m.theme.Base().Render(session.MaskKey(m.footer.APIKey)),
	}
	if m.footer.Username != "" {
		bottom = append(bottom, m.theme.MutedText().Render("User  ")+m.theme.Base().Render(line(m.footer.Username)))
	}

	room := m.height - len(top) - len(bottom)
	if room < len(list) {
		list = scrollWindow(list, m.cursorLine(groups), max(room, 0))
	}
	for len(list) < room {
		list = append(list, "")
	}

	border := m.theme.Border()
	if m.focused {
		border = m.theme.BorderActive()
	}
	body := strings.Join(append(append(top, list...), bottom...), "\n")
	return border.
		BorderTop(false).BorderBottom(false).BorderLeft(false).
		Width(max(m.width-1, 1)).Height(max(m.height, 1)).MaxHeight(max(m.height, 1)).
		Render(body)
}

// cursorLine is the index in the rendered list of the cursor row
func (m *Model) cursorLine(g chats.Groups) int {
	line := m.cursor + 1
	if len(g.Today) > 0 && m.cursor >= len(g.Today) {
		line += 2
	}
	return line
}

func scrollWindow(lines []string, focus, size int) []string {
	if size <= 0 {
		return nil
	}
	start := max(0, focus-size+1)
	end := min(len(lines), start+size)
	return lines[start:end]
}

func (m *Model) renderItem(c api.ChatSummary, index, width int) string {
	label := ansi.Truncate(chats.Label(c), width-2, "…")
	style := m.theme.ListItem()
	prefix := " "
	if c.ChatID == m.activeID {
		style = m.theme.ListItemActive()
		prefix = "●"
	}
	if m.focused && index == m.cursor {
		style = m.theme.ListItemSelected()
	}
	return style.Width(width).Render(prefix + label)
}
