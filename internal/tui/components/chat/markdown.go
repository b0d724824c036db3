package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
)

// MarkdownRenderer wraps glamour for rendering assistant answers
type MarkdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    *RenderCache
}

// NewMarkdownRenderer creates a renderer using a glamour standard style
// ("dark", "light", "notty", ...).
func NewMarkdownRenderer(style string, width int) *MarkdownRenderer {
	m := &MarkdownRenderer{
		style: style,
		cache: NewRenderCache(200),
	}
	m.SetWidth(width)
	return m
}

// SetWidth updates the wrap width, rebuilding the renderer when it changes
func (m *MarkdownRenderer) SetWidth(width int) {
	width = max(width, 20)
	if width == m.width && m.renderer != nil {
		return
	}
	m.width = width

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Warn("markdown renderer unavailable", "style", m.style, "err", err)
		r = nil
	}
	m.renderer = r
	m.cache.Clear()
}

// Render converts markdown to styled terminal output. Rendering failures
// fall back to the raw text.
func (m *MarkdownRenderer) Render(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if m.renderer == nil {
		return content
	}

	key := m.cache.Key(content, m.width, m.style)
	if rendered, ok := m.cache.Get(key); ok {
		return rendered
	}

	rendered, err := m.renderer.Render(content)
	if err != nil {
		log.Debug("markdown render failed", "err", err)
		return content
	}
	rendered = strings.Trim(rendered, "\n")
	m.cache.Set(key, rendered)
	return rendered
}
