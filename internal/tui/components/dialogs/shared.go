package dialogs

import (
	"github.com/charmbracelet/x/ansi"
)

// DialogCloseMsg is sent when a dialog should close
type DialogCloseMsg struct{}

// truncate cuts s to maxWidth cells
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return ansi.Truncate(s, maxWidth, "")
}
