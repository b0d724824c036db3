package dialogs

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

// SettingsSavedMsg carries the edited settings
type SettingsSavedMsg struct {
	APIKey string
	Model  string
}

type settingsFocus int

const (
	focusKey settingsFocus = iota
	focusModel
)

var settingsKeys = struct {
	Next   key.Binding
	Up     key.Binding
	Down   key.Binding
	Save   key.Binding
	Reveal key.Binding
	Cancel key.Binding
}{
	Next:   key.NewBinding(key.WithKeys("tab", "shift+tab")),
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Save:   key.NewBinding(key.WithKeys("enter")),
	Reveal: key.NewBinding(key.WithKeys("ctrl+r")),
	Cancel: key.NewBinding(key.WithKeys("esc")),
}

// SettingsDialog edits the API key and model selection
type SettingsDialog struct {
	theme  themes.Theme
	width  int
	key    textinput.Model
	models []string
	model  int
	focus  settingsFocus
}

// NewSettingsDialog creates the dialog prefilled with the current values
func NewSettingsDialog(theme themes.Theme, apiKey, model string, models []string) *SettingsDialog {
	ti := textinput.New()
	ti.Placeholder = "Gemini API key"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 256
	ti.SetValue(apiKey)
	ti.Focus()

	return &SettingsDialog{
		theme:  theme,
		key:    ti,
		models: models,
		model:  max(slices.Index(models, model), 0),
	}
}

func (s *SettingsDialog) Init() tea.Cmd {
	return textinput.Blink
}

func (s *SettingsDialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, settingsKeys.Cancel):
			return s, func() tea.Msg { return DialogCloseMsg{} }
		case key.Matches(msg, settingsKeys.Save):
			out := SettingsSavedMsg{APIKey: strings.TrimSpace(s.key.Value())}
			if len(s.models) > 0 {
				out.Model = s.models[s.model]
			}
			return s, func() tea.Msg { return out }
		case key.Matches(msg, settingsKeys.Next):
			if s.focus == focusKey {
				s.focus = focusModel
				s.key.Blur()
			} else {
				s.focus = focusKey
				return s, s.key.Focus()
			}
			return s, nil
		case key.Matches(msg, settingsKeys.Reveal):
			if s.key.EchoMode == textinput.EchoPassword {
				s.key.EchoMode = textinput.EchoNormal
			} else {
				s.key.EchoMode = textinput.EchoPassword
			}
			return s, nil
		}
		if s.focus == focusModel {
			switch {
			case key.Matches(msg, settingsKeys.Up):
				s.model = max(s.model-1, 0)
			case key.Matches(msg, settingsKeys.Down):
				s.model = min(s.model+1, len(s.models)-1)
			}
			return s, nil
		}
	}

	var cmd tea.Cmd
	s.key, cmd = s.key.Update(msg)
	return s, cmd
}

func (s *SettingsDialog) View() string {
	width := min(max(s.width-4, 30), 56)
	inner := width - 4
	s.key.Width = inner - 4

	var b strings.Builder
	b.WriteString(s.theme.DialogTitleStyle().Width(inner).Align(lipgloss.Center).Render("Settings"))
	b.WriteString("\n")

	label := s.theme.MutedText()
	if s.focus == focusKey {
		label = s.theme.PrimaryText()
	}
	b.WriteString(label.Render("API key"))
	b.WriteString("\n")
	input := s.theme.Input()
	if s.focus == focusKey {
		input = s.theme.InputActive()
	}
	b.WriteString(input.Width(inner - 2).Render(s.key.View()))
	b.WriteString("\n\n")

	label = s.theme.MutedText()
	if s.focus == focusModel {
		label = s.theme.PrimaryText()
	}
	b.WriteString(label.Render("Model"))
	b.WriteString("\n")
	for i, m := range s.models {
		style := s.theme.ListItem()
		prefix := "  "
		if i == s.model {
			prefix = "● "
			style = s.theme.ListItemActive()
		}
		b.WriteString(style.Render(prefix + m))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(s.theme.MutedText().Width(inner).Align(lipgloss.Center).
		Render("tab: switch • ctrl+r: reveal • enter: save • esc: cancel"))

	return s.theme.DialogStyle().Width(width).Render(b.String())
}
