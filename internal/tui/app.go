// Package tui is the interactive terminal interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/app"
	"github.com/pdfretriever/pdfretriever/internal/notifications"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/auth"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/dialogs"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/sidebar"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/toast"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/upload"
	"github.com/pdfretriever/pdfretriever/internal/tui/layout"
	"github.com/pdfretriever/pdfretriever/internal/tui/page"
	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

// AppEventMsg carries an application state change into the program
type AppEventMsg struct {
	Event app.Event
}

type (
	bootstrapDoneMsg struct{ err error }
	authDoneMsg      struct {
		mode     auth.Mode
		username string
		err      error
	}
	loggedOutMsg struct{ err error }
	settingsMsg  struct{ err error }
)

type Model struct {
	app   *app.App
	ctx   context.Context
	theme themes.Theme

	width  int
	height int
	authed bool

	auth     *auth.Model
	page     *page.WorkspacePage
	toasts   *toast.Model
	progress *upload.Overlay
	dialog   tea.Model
}

// New creates the root model
func New(ctx context.Context, a *app.App) *Model {
	name := strings.ToLower(strings.TrimSpace(a.Config.TUI.Theme))
	if !slices.Contains(themes.Names(), name) {
		a.Logger.Warn("unknown theme, using default", "theme", a.Config.TUI.Theme, "available", themes.Names())
	}
	th := themes.Get(name)
	return &Model{
		app:      a,
		ctx:      ctx,
		theme:    th,
		authed:   a.Authenticated(),
		auth:     auth.New(th, a.Client.BaseURL()),
		page:     page.NewWorkspacePage(ctx, a, th),
		toasts:   toast.New(a.Notifications, th),
		progress: upload.New(th),
	}
}

func (m *Model) Init() tea.Cmd {
	if !m.authed {
		return m.auth.Init()
	}
	a, ctx := m.app, m.ctx
	return tea.Batch(m.page.Init(), func() tea.Msg {
		return bootstrapDoneMsg{err: a.Bootstrap(ctx)}
	})
}

// syncAuth follows login state changes, including ones made elsewhere
func (m *Model) syncAuth() tea.Cmd {
	now := m.app.Authenticated()
	if now == m.authed {
		return nil
	}
	m.authed = now
	m.dialog = nil
	if now {
		return m.page.Init()
	}
	m.auth.Reset()
	return m.auth.Init()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.auth.SetSize(msg.Width, msg.Height)
		m.page.SetSize(msg.Width, msg.Height)
		m.progress.SetWidth(msg.Width)
		if m.dialog != nil {
			m.dialog, _ = m.dialog.Update(msg)
		}
		return m, nil

	case AppEventMsg:
		return m, tea.Batch(m.syncAuth(), m.page.Sync())

	case toast.ChangedMsg:
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case auth.SubmitMsg:
		return m, m.submitAuth(msg)

	case authDoneMsg:
		m.auth.Done(authError(msg.err))
		if msg.err == nil && msg.mode == auth.ModeLogin {
			m.app.Notifications.Success("Welcome, " + msg.username)
		}
		return m, tea.Batch(m.syncAuth(), m.page.Sync())

	case bootstrapDoneMsg:
		switch {
		case errors.Is(msg.err, app.ErrSessionExpired):
			cmd := m.syncAuth()
			m.auth.SetError(msg.err.Error())
			return m, cmd
		case msg.err != nil:
			m.app.Notifications.Error(msg.err.Error(), notifications.WithTitle("Could not reach the server"))
		}
		return m, m.page.Sync()

	case loggedOutMsg:
		if msg.err != nil {
			m.app.Notifications.Error(msg.err.Error(), notifications.WithTitle("Logout failed"))
		}
		return m, m.syncAuth()

	case dialogs.DialogCloseMsg:
		m.dialog = nil
		return m, nil

	case dialogs.FileSelectedMsg:
		m.dialog = nil
		return m, m.page.Upload(msg.Path)

	case dialogs.SettingsSavedMsg:
		m.dialog = nil
		return m, m.saveSettings(msg)

	case settingsMsg:
		if msg.err != nil {
			m.app.Notifications.Error(msg.err.Error(), notifications.WithTitle("Settings not saved"))
		} else {
			m.app.Notifications.Success("Settings saved")
		}
		return m, m.page.Sync()

	case sidebar.DeleteChatMsg:
		return m, m.openDialog(dialogs.NewConfirmDialog(m.theme, msg.ID,
			fmt.Sprintf("Delete %q? This cannot be undone.", msg.Label)))

	case dialogs.ConfirmedMsg:
		m.dialog = nil
		return m, m.page.DeleteChat(msg.ID)
	}

	var cmds []tea.Cmd
	if m.dialog != nil {
		var cmd tea.Cmd
		m.dialog, cmd = m.dialog.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.authed {
		cmds = append(cmds, m.page.Update(msg))
	} else {
		cmds = append(cmds, m.auth.Update(msg))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, keys.Quit) {
		return tea.Quit
	}
	if m.dialog != nil {
		var cmd tea.Cmd
		m.dialog, cmd = m.dialog.Update(msg)
		return cmd
	}
	if !m.authed {
		return m.auth.Update(msg)
	}

	switch {
	case key.Matches(msg, keys.Cancel) && m.app.Workspace.Uploading():
		m.page.CancelUpload()
		return nil
	case key.Matches(msg, keys.Help) && !(msg.String() == "?" && m.page.Editing()):
		return m.openDialog(dialogs.NewHelpDialog(m.theme, m.helpSections()))
	case key.Matches(msg, keys.Upload):
		return m.openDialog(dialogs.NewFileDialog(m.theme, m.app.Config.TUI.StartDir))
	case key.Matches(msg, keys.Settings):
		return m.openDialog(dialogs.NewSettingsDialog(m.theme, m.app.Session.APIKey(), m.app.Model(), m.app.Config.Models))
	case key.Matches(msg, keys.Logout):
		a, ctx := m.app, m.ctx
		return func() tea.Msg { return loggedOutMsg{err: a.Logout(ctx)} }
	}
	return m.page.Update(msg)
}

func (m *Model) openDialog(d tea.Model) tea.Cmd {
	m.dialog, _ = d.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	return m.dialog.Init()
}

func (m *Model) submitAuth(msg auth.SubmitMsg) tea.Cmd {
	a, ctx := m.app, m.ctx
	return func() tea.Msg {
		var err error
		if msg.Mode == auth.ModeRegister {
			err = a.Register(ctx, msg.Username, msg.Password)
		} else {
			err = a.Login(ctx, msg.Username, msg.Password)
		}
		return authDoneMsg{mode: msg.Mode, username: msg.Username, err: err}
	}
}

// authError keeps the backend's explanation and drops the status line
func authError(err error) error {
	if detail := api.Detail(err); detail != "" {
		return errors.New(detail)
	}
	if err != nil && !api.IsAPIError(err) {
		return fmt.Errorf("cannot reach the server: %w", err)
	}
	return err
}

func (m *Model) saveSettings(msg dialogs.SettingsSavedMsg) tea.Cmd {
	a := m.app
	return func() tea.Msg {
		if err := a.SetAPIKey(msg.APIKey); err != nil {
			return settingsMsg{err: err}
		}
		return settingsMsg{err: a.SetModel(msg.Model)}
	}
}

func (m *Model) helpSections() []dialogs.HelpSection {
	return []dialogs.HelpSection{
		{Title: "General", Bindings: keys.Bindings()},
		{Title: "Workspace", Bindings: page.Bindings()},
		{Title: "Question", Bindings: page.EditorBindings()},
		{Title: "Chats", Bindings: sidebar.Bindings()},
	}
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var content string
	if m.authed {
		content = m.page.View()
	} else {
		content = m.auth.View()
	}
	content = layout.Box(content, m.width, m.height)

	if m.authed {
		if overlay := m.progress.View(m.page.Snapshot()); overlay != "" {
			content = layout.PlaceOverlay(m.width, m.height, overlay, content, layout.Center)
		}
	}
	if m.dialog != nil {
		content = layout.PlaceOverlay(m.width, m.height, m.dialog.View(), content, layout.Center)
	}
	if m.toasts.Visible() {
		content = layout.PlaceOverlay(m.width, m.height, m.toasts.View(m.width), content, layout.TopRight)
	}
	return content
}

// Run starts the TUI and blocks until the user quits or ctx is done
func Run(ctx context.Context, a *app.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(
		New(ctx, a),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	// Events can fire from inside Update, so never block on Send.
	a.Subscribe(func(e app.Event) { go p.Send(AppEventMsg{Event: e}) })
	a.Notifications.Subscribe(func(active []notifications.Notification) {
		go p.Send(toast.ChangedMsg{Active: active})
	})
	go func() {
		if err := a.WatchSession(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Warn("session watcher stopped", "err", err)
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

type keyMap struct {
	Quit     key.Binding
	Help     key.Binding
	Upload   key.Binding
	Settings key.Binding
	Logout   key.Binding
	Cancel   key.Binding
}

func (k keyMap) Bindings() []key.Binding {
	return []key.Binding{k.Upload, k.Settings, k.Cancel, k.Logout, k.Help, k.Quit}
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?", "f1"),
		key.WithHelp("?/f1", "help"),
	),
	Upload: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "upload PDF"),
	),
	Settings: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "API key & model"),
	),
	Logout: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "log out"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel upload"),
	),
}
