// Package analysis renders the tables and visual insights the backend
// extracted from a document.
package analysis

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pdfretriever/pdfretriever/internal/api"
)

// Tab selects the panel view
type Tab int

const (
	TabResults Tab = iota
	TabInsights
)

const (
	NoDocument = "Select a document to view analytics"
	NoTables   = "No structured tables found in this document."
	NoMedia    = "No visual components or charts described."
)

// Next cycles to the other tab.
func (t Tab) Next() Tab {
	if t == TabResults {
		return TabInsights
	}
	return TabResults
}

func (t Tab) String() string {
	if t == TabInsights {
		return "Insights"
	}
	return "Results"
}

// Styles used when rendering
type Styles struct {
	Heading lipgloss.Style
	Badge   lipgloss.Style
	Caption lipgloss.Style
	Border  lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Muted   lipgloss.Style
	Label   lipgloss.Style

	TableBorder lipgloss.Border
}

// DefaultStyles returns colourless styles suitable for plain output.
func DefaultStyles() Styles {
	return Styles{
		Heading: lipgloss.NewStyle().Bold(true),
		Badge:   lipgloss.NewStyle().Bold(true),
		Caption: lipgloss.NewStyle().Bold(true),
		Border:  lipgloss.NewStyle(),
		Header:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Cell:    lipgloss.NewStyle().Padding(0, 1),
		Muted:   lipgloss.NewStyle().Faint(true),
		Label:   lipgloss.NewStyle(),

		TableBorder: lipgloss.NormalBorder(),
	}
}

// Caption is the table title, falling back to its position.
func Caption(t api.Table, index int) string {
	if c := strings.TrimSpace(t.Caption); c != "" {
		return c
	}
	return fmt.Sprintf("Table %d", index+1)
}

// Badge is the page marker shown next to tables and insights.
func Badge(page api.FlexInt) string {
	return fmt.Sprintf("PAGE %d", int(page))
}

// TabLabel is the tab title with its item count.
func TabLabel(tab Tab, data *api.ProcessedData) string {
	n := 0
	if data != nil {
		if tab == TabInsights {
			n = len(data.Media)
		} else {
			n = len(data.Tables)
		}
	}
	return fmt.Sprintf("%s (%d)", tab, n)
}

// Render draws one tab of the panel.
func Render(data *api.ProcessedData, tab Tab, width int, st Styles) string {
	if data == nil {
		return st.Muted.Render(NoDocument)
	}
	if tab == TabInsights {
		return renderInsights(data.Media, width, st)
	}
	return renderTables(data.Tables, width, st)
}

func renderTables(tables []api.Table, width int, st Styles) string {
	blocks := []string{st.Heading.Render(fmt.Sprintf("EXTRACTED TABLES (%d)", len(tables)))}
	if len(tables) == 0 {
		blocks = append(blocks, st.Muted.Render(NoTables))
		return strings.Join(blocks, "\n\n")
	}
	for i, t := range tables {
		title := st.Badge.Render(Badge(t.Page)) + "  " + st.Caption.Render(Caption(t, i))
		blocks = append(blocks, title+"\n"+RenderTable(t, width, st))
	}
	return strings.Join(blocks, "\n\n")
}

// RenderTable draws the cell grid. Columns are labelled Col 1..N from the
// first row; ragged rows are padded.
func RenderTable(t api.Table, width int, st Styles) string {
	if len(t.Cells) == 0 {
		return st.Muted.Render("(empty table)")
	}

	cols := len(t.Cells[0])
	for _, row := range t.Cells {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return st.Muted.Render("(empty table)")
	}

	headers := make([]string, cols)
	for i := range headers {
		headers[i] = fmt.Sprintf("COL %d", i+1)
	}
	rows := make([][]string, len(t.Cells))
	for i, row := range t.Cells {
		padded := make([]string, cols)
		copy(padded, row)
		rows[i] = padded
	}

	tbl := table.New().
		Border(st.TableBorder).
		BorderStyle(st.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.Header
			}
			return st.Cell
		})
	if width > 0 {
		tbl = tbl.Width(width)
	}
	return tbl.Render()
}

func renderInsights(media []api.Media, width int, st Styles) string {
	blocks := []string{st.Heading.Render(fmt.Sprintf("VISUAL INTELLIGENCE (%d)", len(media)))}
	if len(media) == 0 {
		blocks = append(blocks, st.Muted.Render(NoMedia))
		return strings.Join(blocks, "\n\n")
	}
	body := lipgloss.NewStyle()
	if width > 0 {
		body = body.Width(width)
	}
	for _, m := range media {
		head := st.Badge.Render(Badge(m.Page)) + "  " + st.Label.Render("VISUAL OBSERVATION")
		blocks = append(blocks, head+"\n"+body.Render(strings.TrimSpace(m.Description)))
	}
	return strings.Join(blocks, "\n\n")
}

// Summary is a one-line description for command output.
func Summary(data *api.ProcessedData) string {
	if data == nil {
		return "no analysis"
	}
	return fmt.Sprintf("%d tables, %d insights, %d outline entries",
		len(data.Tables), len(data.Media), len(data.TOC))
}
