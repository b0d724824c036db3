package sidebar

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

var now = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

func fixture() *Model {
	m := New(themes.NewDefaultTheme())
	m.now = func() time.Time { return now }
	m.SetSize(30, 30)
	m.SetChats([]api.ChatSummary{
		{ChatID: "old", Title: "Lease agreement", CreatedAt: now.AddDate(0, 0, -2)},
		{ChatID: "today", FileName: "annual-report.pdf", CreatedAt: now.Add(-time.Hour)},
	}, "today")
	m.SetFooter(Footer{Username: "alice", Model: "gemini-2.0-flash", APIKey: "AIzaSyabcd1234"})
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewGroupsAndFooter(t *testing.T) {
	m := fixture()
	out := ansi.Strip(m.View())

	for _, want := range []string{"TODAY", "annual-report.pdf", "PREVIOUS", "Lease agreement", "gemini-2.0-flash", "••••1234", "alice"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "AIzaSy")
	assert.Less(t, strings.Index(out, "TODAY"), strings.Index(out, "PREVIOUS"))

	for _, l := range strings.Split(m.View(), "\n") {
		assert.LessOrEqual(t, ansi.StringWidth(l), 30)
	}
}

func TestNavigation(t *testing.T) {
	m := fixture()
	assert.Nil(t, m.Update(tea.KeyMsg{Type: tea.KeyEnter}), "unfocused sidebar ignores keys")

	m.Focus()
	cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SelectChatMsg{ID: "today"}, cmd())

	m.Update(runes("j"))
	m.Update(runes("j"))
	c, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "old", c.ChatID, "cursor stops at the last chat")

	cmd = m.Update(runes("d"))
	require.NotNil(t, cmd)
	assert.Equal(t, DeleteChatMsg{ID: "old", Label: "Lease agreement"}, cmd())

	assert.Equal(t, NewChatMsg{}, m.Update(runes("n"))())
	assert.Equal(t, RefreshMsg{}, m.Update(runes("r"))())
}

func TestFilter(t *testing.T) {
	m := fixture()
	m.Focus()

	m.Update(runes("/"))
	require.True(t, m.Filtering())
	for _, r := range "lease" {
		m.Update(runes(string(r)))
	}
	out := ansi.Strip(m.View())
	assert.Contains(t, out, "Lease agreement")
	assert.NotContains(t, out, "annual-report.pdf")

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.Filtering())
	c, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "old", c.ChatID)

	m.Update(runes("/"))
	m.Update(runes("zzz"))
	assert.Contains(t, ansi.Strip(m.View()), "No matching chats")
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Contains(t, ansi.Strip(m.View()), "annual-report.pdf")
}

func TestEmptyAndCollapsed(t *testing.T) {
	m := New(themes.NewDefaultTheme())
	m.SetSize(30, 20)
	assert.Contains(t, ansi.Strip(m.View()), "No chats yet")

	m.SetSize(0, 20)
	assert.Empty(t, m.View())
}
