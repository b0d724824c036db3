package chat

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

func TestRenderCacheEviction(t *testing.T) {
	c := NewRenderCache(2)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.True(t, okA, "recently used entry kept")
	assert.False(t, okB, "least recently used entry evicted")
	assert.Equal(t, 2, c.Len())

	assert.NotEqual(t, c.Key("x", 80), c.Key("x", 81))
	c.Clear()
	assert.Zero(t, c.Len())
}

func TestMarkdownRenderer(t *testing.T) {
	r := NewMarkdownRenderer("notty", 60)
	out := ansi.Strip(r.Render("**Revenue** grew by *12%*"))
	assert.Contains(t, out, "Revenue")
	assert.Contains(t, out, "12%")
	assert.Empty(t, r.Render("   "))
}

func TestMessagesView(t *testing.T) {
	v := NewMessagesView(themes.NewASCIITheme())
	v.SetSize(60, 30)

	assert.Contains(t, flatten(v.View()), NoChat)

	v.SetContent(Content{ChatID: "c1"})
	assert.Contains(t, ansi.Strip(v.View()), NoMessages)

	expanded := false
	msgs := []api.Message{
		{Role: api.RoleUser, Content: "What was revenue?"},
		{Role: api.RoleAssistant, Content: "It was **42M**.", Reasoning: "Table 2 on page 4"},
		{Role: api.RoleUser, Content: "And costs?"},
		{Role: api.RoleAssistant, Content: "Connection failed"},
	}
	cmd := v.SetContent(Content{ChatID: "c1", Messages: msgs, Expanded: func(int) bool { return expanded }})
	assert.Nil(t, cmd)

	out := ansi.Strip(v.View())
	assert.Contains(t, out, "What was revenue?")
	assert.Contains(t, out, "42M")
	assert.Contains(t, out, "Connection failed")
	assert.Contains(t, out, "Reasoning (ctrl+r to expand)")
	assert.NotContains(t, out, "Table 2 on page 4")

	expanded = true
	v.SetContent(Content{ChatID: "c1", Messages: msgs, Expanded: func(i int) bool { return expanded && i == 1 }})
	assert.Contains(t, ansi.Strip(v.View()), "Table 2 on page 4")

	cmd = v.SetContent(Content{ChatID: "c1", Messages: msgs[:3], Loading: true})
	assert.NotNil(t, cmd, "loading starts the spinner")
	assert.Contains(t, ansi.Strip(v.View()), ThinkingMsg)
}

func TestEditor(t *testing.T) {
	e := NewEditorModel(themes.NewDefaultTheme())
	e.SetWidth(60)
	e.Focus()

	for _, r := range "hello" {
		e.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	cmd := e.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if assert.NotNil(t, cmd) {
		assert.Equal(t, SubmitMsg{Text: "hello"}, cmd())
	}
	assert.Empty(t, e.Value())

	e.SetState(EditorBusy)
	for _, r := range "again" {
		e.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.Nil(t, e.Update(tea.KeyMsg{Type: tea.KeyEnter}), "busy editor does not send")
	assert.Equal(t, "again", e.Value())

	fresh := NewEditorModel(themes.NewDefaultTheme())
	fresh.SetWidth(60)
	fresh.SetState(EditorNoKey)
	assert.Equal(t, EditorNoKey, fresh.State())
	assert.Contains(t, ansi.Strip(fresh.View()), "Set your API key")
}

// flatten strips styling and collapses the soft wraps of a rendered view.
func flatten(s string) string {
	return strings.Join(strings.Fields(ansi.Strip(s)), " ")
}
