package themes

import (
	"github.com/charmbracelet/lipgloss"
)

var asciiBorder = lipgloss.Border{
	Top:          "-",
	Bottom:       "-",
	Left:         "|",
	Right:        "|",
	TopLeft:      "+",
	TopRight:     "+",
	BottomLeft:   "+",
	BottomRight:  "+",
	MiddleLeft:   "+",
	MiddleRight:  "+",
	Middle:       "+",
	MiddleTop:    "+",
	MiddleBottom: "+",
}

// NewASCIITheme creates an ASCII-only theme for better terminal compatibility
func NewASCIITheme() Theme {
	t := NewSimpleTheme().(*DefaultTheme)
	t.name = "ascii"
	t.border = asciiBorder
	t.table = asciiBorder
	t.markdown = "notty"
	return t
}
