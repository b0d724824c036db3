package toast

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/pdfretriever/pdfretriever/internal/notifications"
	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

func TestView(t *testing.T) {
	manager := notifications.NewManager(time.Minute)
	defer manager.Clear()
	m := New(manager, themes.NewDefaultTheme())

	if m.Visible() || m.View(120) != "" {
		t.Fatal("expected no toasts")
	}

	manager.Error("Upload failed: connection refused", notifications.WithTitle("Upload"))
	manager.Success("Chat deleted")

	if !m.Visible() {
		t.Fatal("expected toasts")
	}
	out := ansi.Strip(m.View(120))
	for _, want := range []string{"Upload", "connection refused", "Chat deleted"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Upload") > strings.Index(out, "Chat deleted") {
		t.Error("older toast should be on top")
	}
}

func TestViewWrapsLongMessages(t *testing.T) {
	manager := notifications.NewManager(time.Minute)
	defer manager.Clear()
	m := New(manager, themes.NewASCIITheme())

	manager.Warning(strings.Repeat("word ", 40))
	for _, line := range strings.Split(ansi.Strip(m.View(90)), "\n") {
		if w := ansi.StringWidth(line); w > 30 {
			t.Errorf("line width %d exceeds toast width: %q", w, line)
		}
	}
}
