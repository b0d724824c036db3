package themes

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the interface for TUI themes
type Theme interface {
	Name() string

	// Text styles
	Base() lipgloss.Style
	PrimaryText() lipgloss.Style
	SecondaryText() lipgloss.Style
	MutedText() lipgloss.Style
	ErrorText() lipgloss.Style
	SuccessText() lipgloss.Style
	WarningText() lipgloss.Style

	// UI element styles
	Border() lipgloss.Style
	BorderActive() lipgloss.Style
	Input() lipgloss.Style
	InputActive() lipgloss.Style
	Badge() lipgloss.Style

	// Dialog styles
	DialogStyle() lipgloss.Style
	DialogTitleStyle() lipgloss.Style

	// List styles
	ListItem() lipgloss.Style
	ListItemActive() lipgloss.Style
	ListItemSelected() lipgloss.Style

	// Status styles
	StatusBar() lipgloss.Style
	StatusKey() lipgloss.Style
	StatusValue() lipgloss.Style

	// Toast styles
	ErrorStyle() lipgloss.Style
	SuccessStyle() lipgloss.Style
	WarningStyle() lipgloss.Style
	InfoStyle() lipgloss.Style

	// Transcript styles
	UserLabel() lipgloss.Style
	AssistantLabel() lipgloss.Style
	Reasoning() lipgloss.Style

	// Colors
	Primary() lipgloss.Color
	Secondary() lipgloss.Color
	Muted() lipgloss.Color
	Error() lipgloss.Color
	Success() lipgloss.Color
	Warning() lipgloss.Color
	Info() lipgloss.Color

	// MarkdownStyle names the glamour standard style matching the theme.
	MarkdownStyle() string
	TableBorder() lipgloss.Border
}

var registry = map[string]func() Theme{
	"default": NewDefaultTheme,
	"simple":  NewSimpleTheme,
	"ascii":   NewASCIITheme,
}

// Names lists the available themes
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named theme, falling back to the default theme.
func Get(name string) Theme {
	if fn, ok := registry[strings.ToLower(strings.TrimSpace(name))]; ok {
		return fn()
	}
	return NewDefaultTheme()
}
