package themes

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestGet(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"default", "default"},
		{" Simple ", "simple"},
		{"ASCII", "ascii"},
		{"", "default"},
		{"neon", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Get(tt.in).Name(); got != tt.want {
				t.Errorf("Get(%q).Name() = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 3 || names[0] != "ascii" {
		t.Errorf("Names() = %v", names)
	}
}

func TestASCIIBorders(t *testing.T) {
	out := ansi.Strip(NewASCIITheme().Border().Render("x"))
	for _, r := range out {
		if r > 127 {
			t.Fatalf("ascii theme rendered non-ascii rune %q in %q", r, out)
		}
	}
	if NewASCIITheme().MarkdownStyle() != "notty" {
		t.Error("ascii theme should render markdown without styling")
	}
}
