package upload

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
	"github.com/pdfretriever/pdfretriever/internal/workspace"
)

// Overlay shows upload progress over the workspace
type Overlay struct {
	theme themes.Theme
	bar   progress.Model
	width int
}

// New creates the overlay
func New(th themes.Theme) *Overlay {
	bar := progress.New(
		progress.WithSolidFill(string(th.Primary())),
		progress.WithoutPercentage(),
	)
	return &Overlay{theme: th, bar: bar}
}

// SetWidth sets the available screen width
func (o *Overlay) SetWidth(width int) {
	o.width = width
}

// View renders the dialog for snap. It is empty unless an upload is running.
func (o *Overlay) View(snap workspace.Snapshot) string {
	if snap.State != workspace.Uploading {
		return ""
	}
	width := min(max(o.width-8, 30), 60)
	inner := width - 6
	o.bar.Width = inner - 6

	name := snap.FileName
	if name == "" {
		name = filepath.Base(snap.PreviewPath)
	}
	stage := "Uploading and analyzing document..."
	if snap.Progress >= 100 {
		stage = "Analysis complete"
	}

	pct := float64(max(0, min(snap.Progress, 100))) / 100
	bar := lipgloss.JoinHorizontal(lipgloss.Center,
		o.bar.ViewAs(pct),
		o.theme.PrimaryText().Render(fmt.Sprintf(" %3d%%", int(pct*100))),
	)

	body := strings.Join([]string{
		o.theme.DialogTitleStyle().Render("Processing " + truncate(name, inner-11)),
		o.theme.MutedText().Render(stage),
		"",
		bar,
		"",
		o.theme.MutedText().Render("esc: cancel upload"),
	}, "\n")
	return o.theme.DialogStyle().Width(width).Render(body)
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n && n > 1 {
		return string(r[:n-1]) + "…"
	}
	return s
}
