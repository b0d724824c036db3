package layout

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Position represents where to place an overlay
type Position int

const (
	Center Position = iota
	Top
	Bottom
	TopRight
	BottomRight
)

// PlaceOverlay draws overlay on top of background at pos. Both may contain
// ANSI styling; cells are counted by display width.
func PlaceOverlay(width, height int, overlay, background string, pos Position) string {
	overlayLines := strings.Split(overlay, "\n")
	backgroundLines := strings.Split(background, "\n")

	for len(backgroundLines) < height {
		backgroundLines = append(backgroundLines, "")
	}

	overlayHeight := len(overlayLines)
	overlayWidth := 0
	for _, line := range overlayLines {
		overlayWidth = max(overlayWidth, ansi.StringWidth(line))
	}

	var startX, startY int
	switch pos {
	case Center:
		startX = (width - overlayWidth) / 2
		startY = (height - overlayHeight) / 2
	case Top:
		startX = (width - overlayWidth) / 2
	case Bottom:
		startX = (width - overlayWidth) / 2
		startY = height - overlayHeight
	case TopRight:
		startX = width - overlayWidth - 1
		startY = 1
	case BottomRight:
		startX = width - overlayWidth - 1
		startY = height - overlayHeight - 1
	}
	startX = max(0, min(startX, width-overlayWidth))
	startY = max(0, min(startY, height-overlayHeight))

	result := make([]string, height)
	copy(result, backgroundLines[:height])

	for i, line := range overlayLines {
		y := startY + i
		if y < 0 || y >= height {
			continue
		}
		result[y] = spliceLine(result[y], line, startX, overlayWidth)
	}
	return strings.Join(result, "\n")
}

// spliceLine replaces the cells [x, x+w) of bg with fg.
func spliceLine(bg, fg string, x, w int) string {
	if pad := x + w - ansi.StringWidth(bg); pad > 0 {
		bg += strings.Repeat(" ", pad)
	}
	left := ansi.Truncate(bg, x, "")
	right := ansi.TruncateLeft(bg, x+w, "")
	if fill := w - ansi.StringWidth(fg); fill > 0 {
		fg += strings.Repeat(" ", fill)
	}
	return left + "\x1b[0m" + fg + "\x1b[0m" + right
}

// Box pads content to exactly width x height cells.
func Box(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).MaxWidth(width).
		Height(height).MaxHeight(height).
		Render(content)
}
