package dialogs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
)

// FileSelectedMsg is sent when a PDF is chosen for upload
type FileSelectedMsg struct {
	Path string
}

type fileEntry struct {
	name string
	dir  bool
	size int64
}

// FileDialog browses the filesystem for a PDF to upload. Typing filters
// the current directory.
type FileDialog struct {
	theme         themes.Theme
	width         int
	height        int
	currentPath   string
	entries       []fileEntry
	filter        string
	selectedIndex int
	showHidden    bool
	err           error
}

type fileKeyMap struct {
	Up           key.Binding
	Down         key.Binding
	Enter        key.Binding
	Back         key.Binding
	ToggleHidden key.Binding
	Home         key.Binding
	Cancel       key.Binding
}

var fileKeys = fileKeyMap{
	Up:           key.NewBinding(key.WithKeys("up", "ctrl+k")),
	Down:         key.NewBinding(key.WithKeys("down", "ctrl+j")),
	Enter:        key.NewBinding(key.WithKeys("enter")),
	Back:         key.NewBinding(key.WithKeys("backspace")),
	ToggleHidden: key.NewBinding(key.WithKeys("ctrl+h")),
	Home:         key.NewBinding(key.WithKeys("ctrl+g")),
	Cancel:       key.NewBinding(key.WithKeys("esc")),
}

type directoryLoadedMsg struct {
	path    string
	entries []fileEntry
	err     error
}

// NewFileDialog creates a file picker rooted at dir, or the working
// directory when dir is empty.
func NewFileDialog(theme themes.Theme, dir string) *FileDialog {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return &FileDialog{
		theme:       theme,
		currentPath: dir,
	}
}

// Dir is the directory being browsed
func (f *FileDialog) Dir() string {
	return f.currentPath
}

func (f *FileDialog) Init() tea.Cmd {
	return f.loadDirectory()
}

func (f *FileDialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.width = msg.Width
		f.height = msg.Height

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, fileKeys.Cancel):
			return f, func() tea.Msg { return DialogCloseMsg{} }
		case key.Matches(msg, fileKeys.Up):
			f.moveUp()
		case key.Matches(msg, fileKeys.Down):
			f.moveDown()
		case key.Matches(msg, fileKeys.Enter):
			return f, f.handleEnter()
		case key.Matches(msg, fileKeys.Back):
			if f.filter != "" {
				f.setFilter(f.filter[:len(f.filter)-1])
				return f, nil
			}
			return f, f.navigateUp()
		case key.Matches(msg, fileKeys.ToggleHidden):
			f.showHidden = !f.showHidden
			return f, f.loadDirectory()
		case key.Matches(msg, fileKeys.Home):
			return f, f.navigateHome()
		case msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace:
			f.setFilter(f.filter + string(msg.Runes))
		}

	case directoryLoadedMsg:
		if msg.path != f.currentPath {
			return f, nil
		}
		f.err = msg.err
		f.entries = msg.entries
		f.filter = ""
		f.selectedIndex = 0
	}

	return f, nil
}

func (f *FileDialog) setFilter(filter string) {
	f.filter = filter
	f.selectedIndex = 0
}

// visible returns the entries matching the filter
func (f *FileDialog) visible() []fileEntry {
	if f.filter == "" {
		return f.entries
	}
	var out []fileEntry
	for _, e := range f.entries {
		if fuzzy.MatchFold(f.filter, e.name) {
			out = append(out, e)
		}
	}
	return out
}

func (f *FileDialog) View() string {
	if f.width == 0 || f.height == 0 {
		return ""
	}

	dialogWidth := min(f.width-4, 70)
	dialogHeight := min(f.height-4, 24)
	inner := dialogWidth - 4

	var content strings.Builder
	titleStyle := f.theme.DialogTitleStyle().Width(inner).Align(lipgloss.Center)
	content.WriteString(titleStyle.Render("Upload PDF"))
	content.WriteString("\n")

	pathStyle := f.theme.MutedText().Width(inner)
	content.WriteString(pathStyle.Render(truncatePath(f.currentPath, inner)))
	content.WriteString("\n")
	if f.filter != "" {
		content.WriteString(f.theme.PrimaryText().Render("filter: " + f.filter))
	}
	content.WriteString("\n")

	listHeight := max(dialogHeight-9, 1)
	content.WriteString(f.renderFileList(inner, listHeight))
	content.WriteString("\n\n")

	helpStyle := f.theme.MutedText().Width(inner).Align(lipgloss.Center)
	content.WriteString(helpStyle.Render("type: filter • enter: open/upload • backspace: up • ctrl+h: hidden • esc: cancel"))

	dialogStyle := f.theme.DialogStyle().
		Width(dialogWidth).
		MaxWidth(dialogWidth).
		MaxHeight(dialogHeight)

	return dialogStyle.Render(content.String())
}

func (f *FileDialog) renderFileList(width, height int) string {
	if f.err != nil {
		return f.theme.ErrorText().Render(f.err.Error())
	}
	entries := f.visible()
	if len(entries) == 0 {
		return f.theme.MutedText().Render("No folders or PDF files here")
	}

	startIdx := 0
	if f.selectedIndex >= height {
		startIdx = f.selectedIndex - height + 1
	}
	endIdx := min(startIdx+height, len(entries))

	var lines []string
	for i := startIdx; i < endIdx; i++ {
		lines = append(lines, f.renderEntry(entries[i], i == f.selectedIndex, width))
	}
	return strings.Join(lines, "\n")
}

func (f *FileDialog) renderEntry(entry fileEntry, selected bool, width int) string {
	marker := " "
	if selected {
		marker = ">"
	}

	line := fmt.Sprintf("%s %s", marker, entry.name)
	if entry.dir {
		line += "/"
	} else {
		line += fmt.Sprintf(" (%s)", humanize.Bytes(uint64(entry.size)))
	}

	style := f.theme.ListItem()
	if selected {
		style = f.theme.ListItemActive()
	}
	if lipgloss.Width(line) > width {
		line = truncate(line, width-3) + "..."
	}
	return style.Width(width).Render(line)
}

func (f *FileDialog) loadDirectory() tea.Cmd {
	path := f.currentPath
	showHidden := f.showHidden
	return func() tea.Msg {
		dirEntries, err := os.ReadDir(path)
		if err != nil {
			return directoryLoadedMsg{path: path, err: err}
		}
		return directoryLoadedMsg{path: path, entries: listEntries(path, dirEntries, showHidden)}
	}
}

// listEntries keeps directories and PDF files, directories first.
func listEntries(dir string, dirEntries []fs.DirEntry, showHidden bool) []fileEntry {
	var entries []fileEntry
	for _, de := range dirEntries {
		name := de.Name()
		if !showHidden && strings.HasPrefix(name, ".") {
			continue
		}
		isDir := de.IsDir()
		if de.Type()&fs.ModeSymlink != 0 {
			if st, err := os.Stat(filepath.Join(dir, name)); err == nil {
				isDir = st.IsDir()
			}
		}
		if !isDir && !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		e := fileEntry{name: name, dir: isDir}
		if !isDir {
			if info, err := de.Info(); err == nil {
				e.size = info.Size()
			}
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].dir != entries[j].dir {
			return entries[i].dir
		}
		return strings.ToLower(entries[i].name) < strings.ToLower(entries[j].name)
	})
	return entries
}

func (f *FileDialog) handleEnter() tea.Cmd {
	entries := f.visible()
	if f.selectedIndex < 0 || f.selectedIndex >= len(entries) {
		return nil
	}
	entry := entries[f.selectedIndex]
	full := filepath.Join(f.currentPath, entry.name)
	if entry.dir {
		f.currentPath = full
		return f.loadDirectory()
	}
	return func() tea.Msg { return FileSelectedMsg{Path: full} }
}

func (f *FileDialog) navigateUp() tea.Cmd {
	parent := filepath.Dir(f.currentPath)
	if parent != f.currentPath {
		f.currentPath = parent
		return f.loadDirectory()
	}
	return nil
}

func (f *FileDialog) navigateHome() tea.Cmd {
	home, err := os.UserHomeDir()
	if err == nil {
		f.currentPath = home
		return f.loadDirectory()
	}
	return nil
}

func (f *FileDialog) moveUp() {
	if f.selectedIndex > 0 {
		f.selectedIndex--
	}
}

func (f *FileDialog) moveDown() {
	if f.selectedIndex < len(f.visible())-1 {
		f.selectedIndex++
	}
}

func truncatePath(path string, maxWidth int) string {
	if lipgloss.Width(path) <= maxWidth {
		return path
	}

	parts := strings.Split(path, string(os.PathSeparator))
	for i := 0; i < len(parts)-1; i++ {
		truncated := ".../" + strings.Join(parts[i+1:], "/")
		if lipgloss.Width(truncated) <= maxWidth {
			return truncated
		}
	}
	return truncate(path, maxWidth)
}
