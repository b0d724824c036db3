// Package auth is the login and registration gate shown before the
// workspace.
package auth

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

// Mode selects between signing in and creating an account
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	if m == ModeRegister {
		return "Create Account"
	}
	return "Sign In"
}

// Registered is shown after a successful registration
const Registered = "Registration successful! Please login."

// SubmitMsg asks the shell to log in or register
type SubmitMsg struct {
	Mode     Mode
	Username string
	Password string
}

var keys = struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Toggle key.Binding
}{
	Next:   key.NewBinding(key.WithKeys("tab", "down")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "up")),
	Submit: key.NewBinding(key.WithKeys("enter")),
	Toggle: key.NewBinding(key.WithKeys("ctrl+r")),
}

// Model is the auth form
type Model struct {
	theme   themes.Theme
	width   int
	height  int
	mode    Mode
	inputs  [2]textinput.Model
	focus   int
	pending bool
	err     string
	info    string
	server  string
}

// New creates the form. server is shown as the target backend.
func New(th themes.Theme, server string) *Model {
	user := textinput.New()
	user.Placeholder = "username"
	user.CharLimit = 64
	user.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'
	pass.CharLimit = 128

	return &Model{
		theme:  th,
		inputs: [2]textinput.Model{user, pass},
		server: server,
	}
}

// Mode is the current form mode
func (m *Model) Mode() Mode { return m.mode }

// Pending reports whether a submission is in flight
func (m *Model) Pending() bool { return m.pending }

// SetSize records the screen size for centering
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Done reports the outcome of a submission
func (m *Model) Done(err error) {
	m.pending = false
	if err != nil {
		m.err = err.Error()
		m.info = ""
		return
	}
	m.err = ""
	if m.mode == ModeRegister {
		m.mode = ModeLogin
		m.info = Registered
		m.inputs[1].SetValue("")
		m.setFocus(1)
		return
	}
	m.Reset()
}

// Reset clears the form
func (m *Model) Reset() {
	m.mode = ModeLogin
	m.pending = false
	m.err = ""
	m.info = ""
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.setFocus(0)
}

// SetError shows msg inline, e.g. after the session expired elsewhere
func (m *Model) SetError(msg string) {
	m.err = msg
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.focus = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	return cmd
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) tea.Cmd {
	if km, ok := msg.(tea.KeyMsg); ok {
		if m.pending {
			return nil
		}
		switch {
		case key.Matches(km, keys.Toggle):
			if m.mode == ModeLogin {
				m.mode = ModeRegister
			} else {
				m.mode = ModeLogin
			}
			m.err, m.info = "", ""
			return nil
		case key.Matches(km, keys.Next):
			return m.setFocus((m.focus + 1) % len(m.inputs))
		case key.Matches(km, keys.Prev):
			return m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
		case key.Matches(km, keys.Submit):
			if m.focus == 0 {
				return m.setFocus(1)
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

func (m *Model) submit() tea.Cmd {
	username := strings.TrimSpace(m.inputs[0].Value())
	password := m.inputs[1].Value()
	if username == "" || password == "" {
		m.err = "Username and password are required"
		return nil
	}
	m.pending = true
	m.err, m.info = "", ""
	out := SubmitMsg{Mode: m.mode, Username: username, Password: password}
	return func() tea.Msg { return out }
}

func (m *Model) View() string {
	width := 44
	var b strings.Builder

	b.WriteString(m.theme.PrimaryText().Bold(true).Width(width - 4).Align(lipgloss.Center).Render("PDF Retriever"))
	b.WriteString("\n")
	b.WriteString(m.theme.MutedText().Width(width - 4).Align(lipgloss.Center).Render(m.mode.String()))
	b.WriteString("\n\n")

	for i, in := range m.inputs {
		style := m.theme.Input()
		if i == m.focus {
			style = m.theme.InputActive()
		}
		in.Width = width - 10
		b.WriteString(style.Width(width - 6).Render(in.View()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.pending:
		b.WriteString(m.theme.MutedText().Render("Please wait..."))
	case m.err != "":
		b.WriteString(m.theme.ErrorText().Width(width - 4).Render(m.err))
	case m.info != "":
		b.WriteString(m.theme.SuccessText().Width(width - 4).Render(m.info))
	}
	b.WriteString("\n\n")

	toggle := "Need an account? ctrl+r to register"
	if m.mode == ModeRegister {
		toggle = "Have an account? ctrl+r to sign in"
	}
	b.WriteString(m.theme.MutedText().Render(toggle))
	if m.server != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.MutedText().Render("server: " + m.server))
	}

	form := m.theme.DialogStyle().Width(width).Render(b.String())
	if m.width == 0 || m.height == 0 {
		return form
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}
