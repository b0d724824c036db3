// Package document holds the preview and analysis panes of the workspace.
package document

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/pdfretriever/pdfretriever/internal/analysis"
	"github.com/pdfretriever/pdfretriever/internal/preview"
	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
	"github.com/pdfretriever/pdfretriever/internal/workspace"
)

// PreviewLoadedMsg carries the result of inspecting a local PDF
type PreviewLoadedMsg struct {
	Path string
	Doc  *preview.Document
	Err  error
}

// Inspect reads the PDF at path off the UI goroutine
func Inspect(path string) tea.Cmd {
	return func() tea.Msg {
		doc, err := preview.Inspect(path)
		return PreviewLoadedMsg{Path: path, Doc: doc, Err: err}
	}
}

// Styles maps a theme onto the analysis renderer
func Styles(th themes.Theme) analysis.Styles {
	return analysis.Styles{
		Heading:     th.PrimaryText().Bold(true),
		Badge:       th.Badge(),
		Caption:     th.Base().Bold(true),
		Border:      th.MutedText(),
		Header:      th.SecondaryText().Bold(true).Padding(0, 1),
		Cell:        th.Base().Padding(0, 1),
		Muted:       th.MutedText(),
		Label:       th.MutedText().Bold(true),
		TableBorder: th.TableBorder(),
	}
}

// Pane shows the active document: the preview summary and outline on
// top, the analysis tabs below.
type Pane struct {
	theme    themes.Theme
	styles   analysis.Styles
	width    int
	height   int
	focused  bool
	viewport viewport.Model
	tab      analysis.Tab

	snap    workspace.Snapshot
	doc     *preview.Document
	docPath string
	docErr  error
}

// NewPane creates an empty document pane
func NewPane(th themes.Theme) *Pane {
	return &Pane{
		theme:    th,
		styles:   Styles(th),
		viewport: viewport.New(0, 0),
	}
}

// SetSize resizes the pane
func (p *Pane) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.layout()
}

// Focus gives the pane scroll keys
func (p *Pane) Focus() { p.focused = true }

// Blur releases scroll keys
func (p *Pane) Blur() { p.focused = false }

// Tab is the selected analysis tab
func (p *Pane) Tab() analysis.Tab { return p.tab }

// NextTab switches between results and insights
func (p *Pane) NextTab() {
	p.tab = p.tab.Next()
	p.viewport.GotoTop()
	p.layout()
}

// SetSnapshot updates the pane from workspace state. It returns a command
// inspecting the preview file when the source changed.
func (p *Pane) SetSnapshot(s workspace.Snapshot) tea.Cmd {
	dataChanged := s.ChatID != p.snap.ChatID || s.ProcessedData != p.snap.ProcessedData
	p.snap = s
	if dataChanged {
		p.viewport.GotoTop()
	}

	var cmd tea.Cmd
	if s.PreviewPath != p.docPath {
		p.docPath = s.PreviewPath
		p.doc = nil
		p.docErr = nil
		if s.PreviewPath != "" {
			cmd = Inspect(s.PreviewPath)
		}
	}
	p.layout()
	return cmd
}

// Update applies preview results and scrolling
func (p *Pane) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PreviewLoadedMsg:
		if msg.Path != p.docPath {
			return nil
		}
		p.doc, p.docErr = msg.Doc, msg.Err
		p.layout()
	case tea.KeyMsg:
		if !p.focused {
			return nil
		}
		var cmd tea.Cmd
		p.viewport, cmd = p.viewport.Update(msg)
		return cmd
	case tea.MouseMsg:
		var cmd tea.Cmd
		p.viewport, cmd = p.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (p *Pane) inner() int {
	return max(p.width-2, 10)
}

func (p *Pane) layout() {
	head := p.renderPreview()
	tabs := p.renderTabs()
	p.viewport.Width = p.inner()
	p.viewport.Height = max(p.height-lipgloss.Height(head)-lipgloss.Height(tabs)-1, 1)
	p.viewport.SetContent(analysis.Render(p.snap.ProcessedData, p.tab, p.inner(), p.styles))
}

func (p *Pane) renderPreview() string {
	width := p.inner()
	title := p.theme.PrimaryText().Bold(true).Render("DOCUMENT")

	name := p.snap.FileName
	if name == "" && p.docPath != "" {
		name = filepath.Base(p.docPath)
	}
	lines := []string{title}
	if name != "" {
		lines = append(lines, p.theme.Base().Bold(true).Render(truncate(name, width)))
	}

	switch {
	case p.docPath == "":
		lines = append(lines, p.theme.MutedText().Render(preview.Unavailable))
	case p.docErr != nil:
		lines = append(lines, p.theme.WarningText().Render(truncate("Preview unavailable: "+p.docErr.Error(), width)))
	case p.doc == nil:
		lines = append(lines, p.theme.MutedText().Render("Reading PDF..."))
	default:
		meta := fmt.Sprintf("%s · %s", pages(p.doc.Pages), p.doc.SizeLabel())
		lines = append(lines, p.theme.MutedText().Render(meta))
		if p.doc.Excerpt != "" {
			excerpt := strings.Join(strings.Fields(p.doc.Excerpt), " ")
			lines = append(lines, p.theme.MutedText().Italic(true).Width(width).MaxHeight(2).Render(excerpt))
		}
	}
	if p.snap.FromCache {
		lines = append(lines, p.theme.WarningText().Render(truncate("Offline copy from "+humanize.Time(p.snap.CachedAt), width)))
	}

	if data := p.snap.ProcessedData; data != nil {
		outline := preview.Outline(data.TOC, width)
		if len(data.TOC) > 6 {
			outline = strings.Join(strings.Split(outline, "\n")[:6], "\n") + fmt.Sprintf("\n… %d more", len(data.TOC)-6)
		}
		lines = append(lines, "", p.theme.SecondaryText().Bold(true).Render("OUTLINE"), p.theme.Base().Render(outline))
		if len(data.Sections) > 0 {
			shown := data.Sections[:min(len(data.Sections), 6)]
			list := preview.SectionList(shown, width)
			if more := len(data.Sections) - len(shown); more > 0 {
				list += fmt.Sprintf("\n… %d more", more)
			}
			lines = append(lines, p.theme.SecondaryText().Bold(true).Render("SECTIONS"), p.theme.Base().Render(list))
		}
	}
	return strings.Join(lines, "\n")
}

func (p *Pane) renderTabs() string {
	var parts []string
	for _, t := range []analysis.Tab{analysis.TabResults, analysis.TabInsights} {
		label := analysis.TabLabel(t, p.snap.ProcessedData)
		if t == p.tab {
			parts = append(parts, p.theme.ListItemSelected().PaddingRight(1).Render(label))
		} else {
			parts = append(parts, p.theme.MutedText().Padding(0, 1).Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...) + p.theme.MutedText().Render("  ctrl+t")
}

func (p *Pane) View() string {
	border := p.theme.Border()
	if p.focused {
		border = p.theme.BorderActive()
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		p.renderPreview(),
		"",
		p.renderTabs(),
		p.viewport.View(),
	)
	return border.
		BorderTop(false).BorderBottom(false).BorderRight(false).
		Width(max(p.width-1, 1)).Height(max(p.height, 1)).MaxHeight(max(p.height, 1)).
		Render(body)
}

func pages(n int) string {
	if n == 1 {
		return "1 page"
	}
	return fmt.Sprintf("%d pages", n)
}

func truncate(s string, width int) string {
	return ansi.Truncate(s, width, "…")
}
