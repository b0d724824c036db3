package upload

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
	"github.com/pdfretriever/pdfretriever/internal/workspace"
)

func TestOverlay(t *testing.T) {
	o := New(themes.NewDefaultTheme())
	o.SetWidth(100)

	assert.Empty(t, o.View(workspace.Snapshot{State: workspace.Ready}))

	out := ansi.Strip(o.View(workspace.Snapshot{State: workspace.Uploading, FileName: "annual.pdf", Progress: 40}))
	assert.Contains(t, out, "Processing annual.pdf")
	assert.Contains(t, out, "40%")
	assert.Contains(t, out, "esc: cancel upload")

	out = ansi.Strip(o.View(workspace.Snapshot{State: workspace.Uploading, PreviewPath: "/docs/lease.pdf", Progress: 100}))
	assert.Contains(t, out, "lease.pdf")
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "Analysis complete")
}
