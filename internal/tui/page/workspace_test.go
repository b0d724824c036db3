package page

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfretriever/pdfretriever/internal/app"
	"github.com/pdfretriever/pdfretriever/internal/apptest"
	"github.com/pdfretriever/pdfretriever/internal/logging"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/chat"
	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

func newTestPage(t *testing.T) (*WorkspacePage, *app.App) {
	t.Helper()
	a, err := app.NewApp(apptest.NewServer().Start(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	ctx := context.Background()
	require.NoError(t, a.Login(ctx, "alice", "pw"))

	p := NewWorkspacePage(ctx, a, themes.Get("default"))
	p.SetSize(140, 40)
	p.Sync()
	return p, a
}

func messages(a *app.App) string {
	var out []string
	for _, n := range a.Notifications.Active() {
		out = append(out, n.Message)
	}
	return strings.Join(out, "\n")
}

func TestSelectChatAndAsk(t *testing.T) {
	p, a := newTestPage(t)

	view := ansi.Strip(p.View())
	assert.Contains(t, view, "Alice report")
	assert.Contains(t, view, "New chat")
	assert.Equal(t, chat.EditorNoChat, p.editor.State())

	p.Update(p.selectChat("a1")())
	p.Sync()
	view = ansi.Strip(p.View())
	assert.Contains(t, view, "Analyzing: alice.pdf")
	assert.Contains(t, view, "p.1-2  Summary")
	assert.Equal(t, chat.EditorNoKey, p.editor.State())

	require.NoError(t, a.SetAPIKey("key"))
	p.Sync()
	assert.Equal(t, chat.EditorReady, p.editor.State())

	p.Update(p.sendQuery("What is this?")())
	p.Sync()
	assert.Contains(t, ansi.Strip(p.View()), "Answer to What is this?")

	last := len(a.Transcript.Messages()) - 1
	assert.False(t, a.Transcript.Expanded(last))
	p.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.True(t, a.Transcript.Expanded(last))
}

func TestFocusCycle(t *testing.T) {
	p, _ := newTestPage(t)
	require.Equal(t, focusEditor, p.focus)

	tab := tea.KeyMsg{Type: tea.KeyTab}
	want := []focusArea{focusSidebar, focusDocument, focusTranscript, focusEditor}
	for _, f := range want {
		p.Update(tab)
		assert.Equal(t, f, p.focus)
	}

	p.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, focusTranscript, p.focus)

	t.Run("hidden sidebar is skipped", func(t *testing.T) {
		p.Update(tea.KeyMsg{Type: tea.KeyCtrlB})
		p.setFocus(focusEditor)
		p.Update(tab)
		assert.Equal(t, focusDocument, p.focus)
		assert.NotContains(t, ansi.Strip(p.View()), "Alice report")
	})

	t.Run("narrow terminal hides the document pane", func(t *testing.T) {
		p.SetSize(60, 20)
		p.setFocus(focusEditor)
		p.Update(tab)
		assert.Equal(t, focusTranscript, p.focus)
	})
}

func TestEditingTracksFocus(t *testing.T) {
	p, _ := newTestPage(t)
	assert.True(t, p.Editing())
	p.setFocus(focusSidebar)
	assert.False(t, p.Editing())
	p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	assert.True(t, p.Editing())
}

func TestDeleteChat(t *testing.T) {
	p, a := newTestPage(t)
	p.Update(p.DeleteChat("a1")())
	assert.Empty(t, a.Chats.Items())
	assert.Contains(t, messages(a), `Deleted "Alice report"`)
}

func TestUploadChecks(t *testing.T) {
	p, a := newTestPage(t)

	path := filepath.Join(t.TempDir(), "big.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o644))
	require.NoError(t, os.Truncate(path, RecommendedMaxSize+1))

	t.Run("requires an API key", func(t *testing.T) {
		assert.Nil(t, p.Upload(path))
		assert.Contains(t, messages(a), "Set your API key")
	})

	t.Run("rejects non PDF files", func(t *testing.T) {
		txt := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))
		require.NoError(t, a.SetAPIKey("key"))
		assert.Nil(t, p.Upload(txt))
		assert.Contains(t, messages(a), "not a PDF")
	})

	t.Run("warns about large files", func(t *testing.T) {
		require.NoError(t, a.SetAPIKey("key"))
		assert.NotNil(t, p.Upload(path))
		assert.Contains(t, messages(a), "Max 10MB recommended")
	})
}

func TestUploadResult(t *testing.T) {
	p, a := newTestPage(t)
	require.NoError(t, a.SetAPIKey("key"))

	path := filepath.Join(t.TempDir(), "fresh.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%%EOF\n"), 0o644))

	cmd := p.Upload(path)
	require.NotNil(t, cmd)
	p.Update(cmd())
	p.Sync()

	assert.Contains(t, messages(a), "Analysis complete: fresh.pdf")
	view := ansi.Strip(p.View())
	assert.Contains(t, view, "Analyzing: fresh.pdf")
	assert.Equal(t, chat.EditorReady, p.editor.State())
}

func TestCopyWithoutAnswer(t *testing.T) {
	p, a := newTestPage(t)
	assert.Nil(t, p.Update(tea.KeyMsg{Type: tea.KeyCtrlY}))
	assert.Contains(t, messages(a), "No answer to copy yet")
}
