package themes

import (
	"github.com/charmbracelet/lipgloss"
)

// NewSimpleTheme creates a theme limited to the 16 ANSI colors, for
// terminals without true color.
func NewSimpleTheme() Theme {
	return &DefaultTheme{
		name: "simple",
		p: palette{
			primary:    lipgloss.Color("6"), // Cyan
			secondary:  lipgloss.Color("5"), // Magenta
			background: lipgloss.Color("0"),
			surface:    lipgloss.Color("8"),
			foreground: lipgloss.Color("7"), // White
			error:      lipgloss.Color("1"), // Red
			success:    lipgloss.Color("2"), // Green
			warning:    lipgloss.Color("3"), // Yellow
			info:       lipgloss.Color("4"), // Blue
			muted:      lipgloss.Color("8"), // Gray
		},
		border:   lipgloss.RoundedBorder(),
		table:    lipgloss.NormalBorder(),
		markdown: "dark",
	}
}
