package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfretriever/pdfretriever/internal/app"
	"github.com/pdfretriever/pdfretriever/internal/apptest"
	"github.com/pdfretriever/pdfretriever/internal/logging"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/auth"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/dialogs"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/sidebar"
)

func newTestModel(t *testing.T, srv *apptest.Server) (*Model, *app.App) {
	t.Helper()
	a, err := app.NewApp(srv.Start(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	m := New(context.Background(), a)
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return m, a
}

func view(m *Model) string {
	return ansi.Strip(m.View())
}

// login drives the sign-in form the way a user would
func login(t *testing.T, m *Model) {
	t.Helper()
	_, cmd := m.Update(auth.SubmitMsg{Mode: auth.ModeLogin, Username: "alice", Password: "pw"})
	require.NotNil(t, cmd)
	m.Update(cmd())
	require.True(t, m.authed)
}

func TestInitializing(t *testing.T) {
	a, err := app.NewApp(apptest.NewServer().Start(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	assert.Equal(t, "Initializing...", New(context.Background(), a).View())
}

func TestAuthGate(t *testing.T) {
	m, _ := newTestModel(t, apptest.NewServer())

	v := view(m)
	assert.Contains(t, v, "PDF Retriever")
	assert.Contains(t, v, "Sign In")

	t.Run("workspace keys are inert", func(t *testing.T) {
		m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
		assert.Nil(t, m.dialog)
	})

	t.Run("bad credentials stay on the form", func(t *testing.T) {
		_, cmd := m.Update(auth.SubmitMsg{Mode: auth.ModeLogin, Username: "alice", Password: "nope"})
		m.Update(cmd())
		assert.False(t, m.authed)
		assert.Contains(t, view(m), "Incorrect username or password")
	})
}

func TestLoginShowsWorkspace(t *testing.T) {
	m, _ := newTestModel(t, apptest.NewServer())
	login(t, m)

	v := view(m)
	assert.Contains(t, v, "Alice report")
	assert.Contains(t, v, "Welcome, alice")
	assert.NotContains(t, v, "Sign In")
}

func TestLogout(t *testing.T) {
	m, a := newTestModel(t, apptest.NewServer())
	login(t, m)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.False(t, a.Authenticated())
	assert.False(t, m.authed)
	v := view(m)
	assert.Contains(t, v, "Sign In")
	assert.NotContains(t, v, "Alice report")
}

func TestExpiredSessionReturnsToForm(t *testing.T) {
	srv := apptest.NewServer()
	m, a := newTestModel(t, srv)
	login(t, m)

	srv.Revoke("tok-alice")
	m.Update(bootstrapDoneMsg{err: a.Bootstrap(context.Background())})

	assert.False(t, m.authed)
	assert.Contains(t, view(m), app.ErrSessionExpired.Error())
}

func TestDialogs(t *testing.T) {
	m, a := newTestModel(t, apptest.NewServer())
	login(t, m)

	t.Run("question mark types while editing", func(t *testing.T) {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
		assert.Nil(t, m.dialog)
	})

	t.Run("help", func(t *testing.T) {
		m.Update(tea.KeyMsg{Type: tea.KeyF1})
		require.NotNil(t, m.dialog)
		v := view(m)
		assert.Contains(t, v, "Keyboard Shortcuts")
		assert.Contains(t, v, "upload PDF")

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		m.Update(cmd())
		assert.Nil(t, m.dialog)
	})

	t.Run("settings", func(t *testing.T) {
		m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
		require.NotNil(t, m.dialog)
		assert.Contains(t, view(m), "API key")

		_, cmd := m.Update(dialogs.SettingsSavedMsg{APIKey: "sk-test-1234", Model: "gemini-2.5-flash"})
		require.NotNil(t, cmd)
		m.Update(cmd())
		assert.Nil(t, m.dialog)
		assert.Equal(t, "sk-test-1234", a.Session.APIKey())
		assert.Equal(t, "gemini-2.5-flash", a.Model())
		assert.Contains(t, view(m), "Settings saved")
	})

	t.Run("delete asks first", func(t *testing.T) {
		m.Update(sidebar.DeleteChatMsg{ID: "a1", Label: "Alice report"})
		require.NotNil(t, m.dialog)
		assert.Contains(t, view(m), `Delete "Alice report"?`)

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
		require.NotNil(t, cmd)
		_, cmd = m.Update(cmd())
		assert.Nil(t, m.dialog)
		require.NotNil(t, cmd)
		m.Update(cmd())
		assert.Empty(t, a.Chats.Items())
	})
}
