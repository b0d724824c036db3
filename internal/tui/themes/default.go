package themes

import (
	"github.com/charmbracelet/lipgloss"
)

type palette struct {
	primary    lipgloss.Color
	secondary  lipgloss.Color
	background lipgloss.Color
	surface    lipgloss.Color
	foreground lipgloss.Color
	error      lipgloss.Color
	success    lipgloss.Color
	warning    lipgloss.Color
	info       lipgloss.Color
	muted      lipgloss.Color
}

// DefaultTheme is the dark indigo theme
type DefaultTheme struct {
	name     string
	p        palette
	border   lipgloss.Border
	table    lipgloss.Border
	markdown string
}

// NewDefaultTheme creates a new default theme
func NewDefaultTheme() Theme {
	return &DefaultTheme{
		name: "default",
		p: palette{
			primary:    lipgloss.Color("#818CF8"), // Indigo
			secondary:  lipgloss.Color("#38BDF8"), // Sky
			background: lipgloss.Color("#0F172A"), // Slate 900
			surface:    lipgloss.Color("#1E293B"), // Slate 800
			foreground: lipgloss.Color("#E2E8F0"), // Slate 200
			error:      lipgloss.Color("#F87171"),
			success:    lipgloss.Color("#34D399"),
			warning:    lipgloss.Color("#FBBF24"),
			info:       lipgloss.Color("#60A5FA"),
			muted:      lipgloss.Color("#64748B"), // Slate 500
		},
		border:   lipgloss.RoundedBorder(),
		table:    lipgloss.NormalBorder(),
		markdown: "dark",
	}
}

func (t *DefaultTheme) Name() string { return t.name }

func (t *DefaultTheme) Base() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.p.foreground)
}

func (t *DefaultTheme) PrimaryText() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.p.primary)
}

func (t *DefaultTheme) SecondaryText() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.p.secondary)
}

func (t *DefaultTheme) MutedText() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.p.muted)
}

func (t *DefaultTheme) ErrorText() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.p.error)
}

func (t *DefaultTheme) SuccessText() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.p.success)
}

func (t *DefaultTheme) WarningText() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.p.warning)
}

func (t *DefaultTheme) Border() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(t.border).
		BorderForeground(t.p.muted)
}

func (t *DefaultTheme) BorderActive() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(t.border).
		BorderForeground(t.p.primary)
}

func (t *DefaultTheme) Input() lipgloss.Style {
	return t.Border().Padding(0, 1)
}

func (t *DefaultTheme) InputActive() lipgloss.Style {
	return t.BorderActive().Padding(0, 1)
}

func (t *DefaultTheme) Badge() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.p.secondary).
		Bold(true)
}

func (t *DefaultTheme) DialogStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(t.border).
		BorderForeground(t.p.primary).
		Padding(1, 2)
}

func (t *DefaultTheme) DialogTitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.p.primary).
		Bold(true).
		MarginBottom(1)
}

func (t *DefaultTheme) ListItem() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.p.foreground).
		PaddingLeft(1)
}

func (t *DefaultTheme) ListItemActive() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.p.primary).
		Bold(true).
		PaddingLeft(1)
}

func (t *DefaultTheme) ListItemSelected() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.p.background).
		Background(t.p.primary).
		PaddingLeft(1)
}

func (t *DefaultTheme) StatusBar() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.p.surface).
		Foreground(t.p.foreground).
		Padding(0, 1)
}

func (t *DefaultTheme) StatusKey() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.p.surface).
		Foreground(t.p.muted).
		MarginRight(1)
}

func (t *DefaultTheme) StatusValue() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.p.surface).
		Foreground(t.p.primary).
		MarginRight(2)
}

func (t *DefaultTheme) toast(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.p.foreground).
		Border(t.border).
		BorderForeground(c).
		Padding(0, 1)
}

func (t *DefaultTheme) ErrorStyle() lipgloss.Style   { return t.toast(t.p.error) }
func (t *DefaultTheme) SuccessStyle() lipgloss.Style { return t.toast(t.p.success) }
func (t *DefaultTheme) WarningStyle() lipgloss.Style { return t.toast(t.p.warning) }
func (t *DefaultTheme) InfoStyle() lipgloss.Style    { return t.toast(t.p.info) }

func (t *DefaultTheme) UserLabel() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.p.secondary).Bold(true)
}

func (t *DefaultTheme) AssistantLabel() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.p.primary).Bold(true)
}

func (t *DefaultTheme) Reasoning() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(t.p.muted).
		Italic(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(t.p.muted).
		PaddingLeft(1)
}

// Color getters
func (t *DefaultTheme) Primary() lipgloss.Color   { return t.p.primary }
func (t *DefaultTheme) Secondary() lipgloss.Color { return t.p.secondary }
func (t *DefaultTheme) Muted() lipgloss.Color     { return t.p.muted }
func (t *DefaultTheme) Error() lipgloss.Color     { return t.p.error }
func (t *DefaultTheme) Success() lipgloss.Color   { return t.p.success }
func (t *DefaultTheme) Warning() lipgloss.Color   { return t.p.warning }
func (t *DefaultTheme) Info() lipgloss.Color      { return t.p.info }

func (t *DefaultTheme) MarkdownStyle() string { return t.markdown }
func (t *DefaultTheme) TableBorder() lipgloss.Border { return t.table }
