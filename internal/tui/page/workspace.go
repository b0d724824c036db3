// Package page holds the full-screen views of the TUI.
package page

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/pdfretriever/pdfretriever/internal/analysis"
	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/app"
	"github.com/pdfretriever/pdfretriever/internal/chats"
	"github.com/pdfretriever/pdfretriever/internal/notifications"
	"github.com/pdfretriever/pdfretriever/internal/preview"
	"github.com/pdfretriever/pdfretriever/internal/transcript"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/chat"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/document"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/sidebar"
	"github.com/pdfretriever/pdfretriever/internal/tui/components/status"
	"github.com/pdfretriever/pdfretriever/internal/tui/themes"
	"github.com/pdfretriever/pdfretriever/internal/workspace"
)

// RecommendedMaxSize is the upload size above which a warning is shown
const RecommendedMaxSize = 10 << 20

const sidebarWidth = 30

type focusArea int

const (
	focusEditor focusArea = iota
	focusSidebar
	focusDocument
	focusTranscript
)

// Result messages of the asynchronous operations
type (
	chatSelectedMsg struct {
		id  string
		err error
	}
	queryDoneMsg   struct{ err error }
	chatDeletedMsg struct {
		id, label string
		err       error
	}
	refreshedMsg  struct{ err error }
	uploadDoneMsg struct {
		name string
		err  error
	}
	copiedMsg struct{ err error }
)

type keyMap struct {
	FocusNext     key.Binding
	FocusPrev     key.Binding
	NewChat       key.Binding
	ToggleSidebar key.Binding
	Copy          key.Binding
	Reasoning     key.Binding
	AnalysisTab   key.Binding
}

// Keys are the workspace bindings, exported for the help dialog
var Keys = keyMap{
	FocusNext:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
	FocusPrev:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous pane")),
	NewChat:       key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
	ToggleSidebar: key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "toggle sidebar")),
	Copy:          key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy last answer")),
	Reasoning:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "show/hide reasoning")),
	AnalysisTab:   key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "results/insights tab")),
}

// Bindings lists Keys for the help dialog
func Bindings() []key.Binding {
	return []key.Binding{Keys.FocusNext, Keys.FocusPrev, Keys.NewChat, Keys.ToggleSidebar, Keys.Copy, Keys.Reasoning, Keys.AnalysisTab}
}

// EditorBindings lists the question input bindings
func EditorBindings() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send question")),
		key.NewBinding(key.WithKeys("alt+enter"), key.WithHelp("alt+enter", "new line")),
		key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup/pgdn", "scroll transcript")),
	}
}

// WorkspacePage is the signed-in view: sidebar, transcript, document pane
type WorkspacePage struct {
	app   *app.App
	theme themes.Theme
	ctx   context.Context

	width       int
	height      int
	showSidebar bool
	focus       focusArea

	sidebar  *sidebar.Model
	messages *chat.MessagesView
	editor   *chat.EditorModel
	document *document.Pane
	status   *status.Model

	snap workspace.Snapshot
}

// NewWorkspacePage creates the page
func NewWorkspacePage(ctx context.Context, a *app.App, th themes.Theme) *WorkspacePage {
	return &WorkspacePage{
		app:         a,
		theme:       th,
		ctx:         ctx,
		showSidebar: true,
		sidebar:     sidebar.New(th),
		messages:    chat.NewMessagesView(th),
		editor:      chat.NewEditorModel(th),
		document:    document.NewPane(th),
		status:      status.NewStatusBar(th),
	}
}

func (p *WorkspacePage) Init() tea.Cmd {
	return tea.Batch(p.editor.Focus(), p.Sync())
}

// Snapshot is the workspace state last synced
func (p *WorkspacePage) Snapshot() workspace.Snapshot {
	return p.snap
}

// Sync pulls the application state into the components
func (p *WorkspacePage) Sync() tea.Cmd {
	a := p.app
	p.snap = a.Workspace.Snapshot()

	p.sidebar.SetChats(a.Chats.Items(), p.snap.ChatID)
	footer := sidebar.Footer{Model: a.Model(), APIKey: a.Session.APIKey()}
	if u := a.User(); u != nil {
		footer.Username = u.Username
	}
	p.sidebar.SetFooter(footer)

	tr := a.Transcript
	cmds := []tea.Cmd{
		p.messages.SetContent(chat.Content{
			ChatID:   tr.ChatID(),
			Messages: tr.Messages(),
			Expanded: tr.Expanded,
			Loading:  tr.Loading(),
		}),
		p.document.SetSnapshot(p.snap),
	}

	switch {
	case p.snap.State != workspace.Ready || p.snap.ChatID == "":
		p.editor.SetState(chat.EditorNoChat)
	case a.Session.APIKey() == "":
		p.editor.SetState(chat.EditorNoKey)
	case tr.Loading():
		p.editor.SetState(chat.EditorBusy)
	default:
		p.editor.SetState(chat.EditorReady)
	}

	p.status.SetInfo(status.Info{
		Username: footer.Username,
		State:    p.snap.State,
		FileName: p.snap.FileName,
		Hints:    p.hints(),
	})
	return tea.Batch(cmds...)
}

func (p *WorkspacePage) hints() string {
	if p.snap.State == workspace.Uploading {
		return "esc cancel upload"
	}
	switch p.focus {
	case focusSidebar:
		return "enter open • d delete • / filter • ? help"
	case focusDocument:
		return "ctrl+t tab • ↑/↓ scroll • ? help"
	default:
		return "ctrl+o upload • ctrl+s settings • ? help"
	}
}

// SetSize lays out the page
func (p *WorkspacePage) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.layout()
}

func (p *WorkspacePage) widths() (side, center, doc int) {
	if p.showSidebar && p.width >= 70 {
		side = sidebarWidth
	}
	rest := p.width - side
	if rest >= 80 {
		doc = rest * 2 / 5
	}
	return side, rest - doc, doc
}

func (p *WorkspacePage) layout() {
	side, center, doc := p.widths()
	body := max(p.height-p.status.Height(), 1)

	p.sidebar.SetSize(side, body)
	p.document.SetSize(doc, body)
	p.editor.SetWidth(center - 4)
	p.messages.SetSize(center-1, max(body-1-p.editor.Height()-2, 1))
	p.status.SetWidth(p.width)
}

func (p *WorkspacePage) setFocus(f focusArea) tea.Cmd {
	side, _, doc := p.widths()
	if f == focusSidebar && side == 0 || f == focusDocument && doc == 0 {
		f = focusEditor
	}
	p.focus = f
	p.sidebar.Blur()
	p.document.Blur()
	p.editor.Blur()
	p.status.SetInfo(status.Info{Username: p.statusUser(), State: p.snap.State, FileName: p.snap.FileName, Hints: p.hints()})
	switch f {
	case focusSidebar:
		p.sidebar.Focus()
	case focusDocument:
		p.document.Focus()
	case focusEditor:
		return p.editor.Focus()
	}
	return nil
}

func (p *WorkspacePage) statusUser() string {
	if u := p.app.User(); u != nil {
		return u.Username
	}
	return ""
}

func (p *WorkspacePage) cycleFocus(dir int) tea.Cmd {
	order := []focusArea{focusEditor, focusSidebar, focusDocument, focusTranscript}
	i := 0
	for j, f := range order {
		if f == p.focus {
			i = j
		}
	}
	side, _, doc := p.widths()
	for range order {
		i = (i + dir + len(order)) % len(order)
		if order[i] == focusSidebar && side == 0 || order[i] == focusDocument && doc == 0 {
			continue
		}
		break
	}
	return p.setFocus(order[i])
}

// Update handles keys and operation results
func (p *WorkspacePage) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return p.handleKey(msg)

	case tea.MouseMsg:
		return tea.Batch(p.messages.Update(msg), p.document.Update(msg))

	case chat.SubmitMsg:
		return p.sendQuery(msg.Text)

	case sidebar.SelectChatMsg:
		return p.selectChat(msg.ID)

	case sidebar.NewChatMsg:
		p.app.Workspace.NewChat()
		return p.setFocus(focusEditor)

	case sidebar.RefreshMsg:
		return p.refresh()

	case chatSelectedMsg:
		if msg.err != nil {
			return p.fail("Could not open chat", msg.err)
		}
		if p.app.Workspace.Snapshot().FromCache {
			p.app.Notifications.Warning("Server unreachable, showing the offline copy")
		}
		return p.setFocus(focusEditor)

	case queryDoneMsg:
		switch {
		case msg.err == nil, errors.Is(msg.err, transcript.ErrSuperseded), api.IsCanceled(msg.err):
		case errors.Is(msg.err, transcript.ErrBusy):
			p.app.Notifications.Warning("Wait for the current answer first")
		default:
			// the failure is already in the transcript
			p.app.HandleError(p.ctx, msg.err)
		}
		return nil

	case chatDeletedMsg:
		if msg.err != nil {
			return p.fail("Could not delete chat", msg.err)
		}
		p.app.Notifications.Success(fmt.Sprintf("Deleted %q", msg.label))
		return nil

	case refreshedMsg:
		if msg.err != nil {
			return p.fail("Could not refresh chat history", msg.err)
		}
		return nil

	case uploadDoneMsg:
		switch {
		case msg.err == nil:
			p.app.Notifications.Success("Analysis complete: " + msg.name)
			return p.setFocus(focusEditor)
		case errors.Is(msg.err, workspace.ErrUploadCanceled):
			p.app.Notifications.Info("Upload cancelled")
			return nil
		default:
			return p.fail("Upload failed", msg.err)
		}

	case copiedMsg:
		if msg.err != nil {
			p.app.Notifications.Error("Clipboard unavailable: " + msg.err.Error())
		} else {
			p.app.Notifications.Success("Answer copied to clipboard")
		}
		return nil

	case document.PreviewLoadedMsg:
		return p.document.Update(msg)
	}

	return p.messages.Update(msg)
}

func (p *WorkspacePage) handleKey(msg tea.KeyMsg) tea.Cmd {
	if p.focus == focusSidebar && p.sidebar.Filtering() {
		return p.sidebar.Update(msg)
	}

	switch {
	case key.Matches(msg, Keys.FocusNext):
		return p.cycleFocus(1)
	case key.Matches(msg, Keys.FocusPrev):
		return p.cycleFocus(-1)
	case key.Matches(msg, Keys.ToggleSidebar):
		p.showSidebar = !p.showSidebar
		p.layout()
		if p.focus == focusSidebar {
			return p.setFocus(focusEditor)
		}
		return nil
	case key.Matches(msg, Keys.NewChat):
		p.app.Workspace.NewChat()
		return p.setFocus(focusEditor)
	case key.Matches(msg, Keys.Copy):
		return p.copyAnswer()
	case key.Matches(msg, Keys.Reasoning):
		p.toggleReasoning()
		return p.Sync()
	case key.Matches(msg, Keys.AnalysisTab):
		p.document.NextTab()
		return nil
	}

	switch p.focus {
	case focusSidebar:
		return p.sidebar.Update(msg)
	case focusDocument:
		return p.document.Update(msg)
	case focusTranscript:
		return p.messages.Update(msg)
	default:
		switch msg.Type {
		case tea.KeyPgUp, tea.KeyPgDown:
			return p.messages.Update(msg)
		}
		return p.editor.Update(msg)
	}
}

// toggleReasoning flips the newest message that has a reasoning trace
func (p *WorkspacePage) toggleReasoning() {
	msgs := p.app.Transcript.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].HasReasoning() {
			p.app.Transcript.ToggleReasoning(i)
			return
		}
	}
}

// fail reports err unless it tore down the session
func (p *WorkspacePage) fail(what string, err error) tea.Cmd {
	if api.IsCanceled(err) || errors.Is(err, workspace.ErrSuperseded) {
		return nil
	}
	if p.app.HandleError(p.ctx, err) {
		return nil
	}
	detail := api.Detail(err)
	if detail == "" {
		detail = err.Error()
	}
	p.app.Notifications.Error(detail, notifications.WithTitle(what))
	return nil
}

func (p *WorkspacePage) selectChat(id string) tea.Cmd {
	ctx := p.ctx
	ws := p.app.Workspace
	return func() tea.Msg {
		return chatSelectedMsg{id: id, err: ws.SelectChat(ctx, id)}
	}
}

func (p *WorkspacePage) sendQuery(text string) tea.Cmd {
	ctx := p.ctx
	tr := p.app.Transcript
	return func() tea.Msg {
		return queryDoneMsg{err: tr.SendQuery(ctx, text)}
	}
}

func (p *WorkspacePage) refresh() tea.Cmd {
	ctx := p.ctx
	a := p.app
	return func() tea.Msg {
		return refreshedMsg{err: a.RefreshChats(ctx)}
	}
}

// DeleteChat removes a chat after the user confirmed
func (p *WorkspacePage) DeleteChat(id string) tea.Cmd {
	ctx := p.ctx
	a := p.app
	label := id
	if c, ok := a.Chats.Find(id); ok {
		label = chats.Label(c)
	}
	return func() tea.Msg {
		return chatDeletedMsg{id: id, label: label, err: a.DeleteChat(ctx, id)}
	}
}

// Upload starts analysing the PDF at path. Files over the recommended
// size get a warning but are still sent.
func (p *WorkspacePage) Upload(path string) tea.Cmd {
	if p.app.Session.APIKey() == "" {
		p.app.Notifications.Warning("Set your API key (ctrl+s) before uploading")
		return nil
	}
	info, err := preview.CheckPDF(path)
	if err != nil {
		return p.fail("Cannot upload", err)
	}
	if info.Size() > RecommendedMaxSize {
		p.app.Notifications.Warning(fmt.Sprintf("%s is %s. Max 10MB recommended, processing may be slow.",
			filepath.Base(path), humanize.Bytes(uint64(info.Size()))))
	}

	ctx := p.ctx
	ws := p.app.Workspace
	name := filepath.Base(path)
	return func() tea.Msg {
		return uploadDoneMsg{name: name, err: ws.UploadDocument(ctx, path)}
	}
}

// CancelUpload aborts a running upload
func (p *WorkspacePage) CancelUpload() bool {
	return p.app.Workspace.CancelUpload()
}

func (p *WorkspacePage) copyAnswer() tea.Cmd {
	answer, ok := p.app.Transcript.LastAnswer()
	if !ok {
		p.app.Notifications.Info("No answer to copy yet")
		return nil
	}
	return func() tea.Msg {
		return copiedMsg{err: clipboard.WriteAll(answer)}
	}
}

func (p *WorkspacePage) header(width int) string {
	var title string
	switch {
	case p.snap.State == workspace.Ready && p.snap.FileName != "":
		title = p.theme.PrimaryText().Bold(true).Render("Analyzing: "+p.snap.FileName) +
			p.theme.MutedText().Render("  "+analysis.Summary(p.snap.ProcessedData))
	case p.snap.State == workspace.Uploading:
		title = p.theme.MutedText().Render("Uploading...")
	default:
		title = p.theme.MutedText().Render("New chat")
	}
	return ansi.Truncate(title, width, "…")
}

func (p *WorkspacePage) View() string {
	side, center, doc := p.widths()
	body := max(p.height-p.status.Height(), 1)

	input := p.theme.Input()
	if p.focus == focusEditor {
		input = p.theme.InputActive()
	}
	transcriptView := p.messages.View()
	if p.focus == focusTranscript {
		transcriptView = lipgloss.NewStyle().
			BorderStyle(lipgloss.ThickBorder()).BorderLeft(true).
			BorderForeground(p.theme.Primary()).
			Render(transcriptView)
	}
	main := lipgloss.JoinVertical(lipgloss.Left,
		p.header(center-2),
		transcriptView,
		input.Width(center-2).Render(p.editor.View()),
	)
	main = lipgloss.NewStyle().Width(center).Height(body).MaxHeight(body).PaddingLeft(1).Render(main)

	var cols []string
	if side > 0 {
		cols = append(cols, p.sidebar.View())
	}
	cols = append(cols, main)
	if doc > 0 {
		cols = append(cols, p.document.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, cols...),
		p.status.View(),
	)
}

// Editing reports whether keystrokes are going into a text field
func (p *WorkspacePage) Editing() bool {
	return p.focus == focusEditor || p.focus == focusSidebar && p.sidebar.Filtering()
}
