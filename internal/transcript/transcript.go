// Package transcript holds the message list of the active chat and sends
// queries about the active document.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/pdfretriever/pdfretriever/internal/api"
)

const (
	connectionFailed = "Connection failed"
	answerFailed     = "Failed to get answer"
	errorPrefix      = "Error: "
)

// IsFailure reports whether an assistant message records a failed query.
func IsFailure(content string) bool {
	return content == connectionFailed || strings.HasPrefix(content, errorPrefix)
}

var (
	// ErrBusy is returned when a query is sent while another is pending.
	ErrBusy = errors.New("a query is already in progress")
	// ErrSuperseded is returned when the transcript moved to another chat
	// before the response arrived.
	ErrSuperseded = errors.New("transcript changed before the response arrived")
)

// Backend is the subset of the API client the transcript needs
type Backend interface {
	Query(ctx context.Context, in api.QueryRequest) (*api.QueryResult, error)
	GetChat(ctx context.Context, chatID string) (*api.ChatDetail, error)
}

// Settings supplies the stored key and model selection
type Settings interface {
	APIKey() string
	Model(fallback string) string
}

// Options configures a Transcript
type Options struct {
	Backend      Backend
	Settings     Settings
	DefaultModel string
	Logger       *log.Logger
	// OnChange is called after every mutation.
	OnChange func()
}

// Transcript is the append-only message list of one chat. Safe for
// concurrent use.
type Transcript struct {
	opts   Options
	logger *log.Logger

	mu       sync.Mutex
	seq      uint64
	chatID   string
	messages []api.Message
	expanded map[int]bool
	loading  bool
}

// New creates an empty transcript
func New(opts Options) *Transcript {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Transcript{
		opts:     opts,
		logger:   opts.Logger.WithPrefix("transcript"),
		expanded: make(map[int]bool),
	}
}

func (t *Transcript) notify() {
	if t.opts.OnChange != nil {
		t.opts.OnChange()
	}
}

// SendQuery appends the question, asks the backend and appends the answer.
// Backend failures are appended as an assistant message and also returned.
// It is a no-op when text is blank, no API key is stored or no chat is
// active.
func (t *Transcript) SendQuery(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	apiKey := t.opts.Settings.APIKey()
	if text == "" || apiKey == "" {
		return nil
	}

	t.mu.Lock()
	if t.chatID == "" {
		t.mu.Unlock()
		return nil
	}
	if t.loading {
		t.mu.Unlock()
		return ErrBusy
	}
	chatID := t.chatID
	token := t.seq
	t.messages = append(t.messages, api.Message{Role: api.RoleUser, Content: text})
	t.loading = true
	t.mu.Unlock()
	t.notify()

	t.logger.Debug("sending query", "chat", chatID, "chars", len(text))

	res, err := t.opts.Backend.Query(ctx, api.QueryRequest{
		ChatID: chatID,
		Query:  text,
		Model:  t.opts.Settings.Model(t.opts.DefaultModel),
		APIKey: apiKey,
	})

	t.mu.Lock()
	if token != t.seq {
		t.mu.Unlock()
		t.logger.Debug("discarding answer for replaced transcript", "chat", chatID)
		return ErrSuperseded
	}
	t.loading = false

	var reply api.Message
	switch {
	case err == nil:
		reply = api.Message{Role: api.RoleAssistant, Content: res.Answer, Reasoning: res.Reasoning, Context: res.Context}
	case api.IsCanceled(err):
		t.mu.Unlock()
		t.notify()
		return err
	case api.IsAPIError(err):
		detail := api.Detail(err)
		if detail == "" {
			detail = answerFailed
		}
		reply = api.Message{Role: api.RoleAssistant, Content: errorPrefix + detail}
	default:
		reply = api.Message{Role: api.RoleAssistant, Content: connectionFailed}
	}
	t.messages = append(t.messages, reply)
	t.mu.Unlock()
	t.notify()

	if err != nil {
		t.logger.Warn("query failed", "chat", chatID, "err", err)
		return fmt.Errorf("query failed: %w", err)
	}
	return nil
}

// LoadHistory replaces the transcript with the stored history of chatID.
// Only the latest load or replace is applied.
func (t *Transcript) LoadHistory(ctx context.Context, chatID string) error {
	t.mu.Lock()
	t.seq++
	token := t.seq
	t.mu.Unlock()

	detail, err := t.opts.Backend.GetChat(ctx, chatID)
	if err != nil {
		t.logger.Warn("failed to load history", "chat", chatID, "err", err)
		return fmt.Errorf("failed to load history: %w", err)
	}

	t.mu.Lock()
	if token != t.seq {
		t.mu.Unlock()
		return ErrSuperseded
	}
	t.setLocked(chatID, detail.History)
	t.mu.Unlock()
	t.notify()
	return nil
}

// Replace sets the transcript to history without fetching. Pending answers
// for the previous contents are dropped.
func (t *Transcript) Replace(chatID string, history []api.Message) {
	t.mu.Lock()
	t.seq++
	t.setLocked(chatID, history)
	t.mu.Unlock()
	t.notify()
}

// Reset empties the transcript.
func (t *Transcript) Reset() {
	t.Replace("", nil)
}

func (t *Transcript) setLocked(chatID string, history []api.Message) {
	t.chatID = chatID
	t.messages = append([]api.Message(nil), history...)
	t.expanded = make(map[int]bool)
	t.loading = false
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []api.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]api.Message(nil), t.messages...)
}

// ChatID returns the chat the transcript belongs to.
func (t *Transcript) ChatID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chatID
}

// Loading reports whether a query is pending.
func (t *Transcript) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// Expanded reports whether the reasoning of message i is shown.
func (t *Transcript) Expanded(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expanded[i]
}

// ToggleReasoning flips the reasoning visibility of message i and returns
// the new state. Messages without reasoning stay collapsed.
func (t *Transcript) ToggleReasoning(i int) bool {
	t.mu.Lock()
	if i < 0 || i >= len(t.messages) || !t.messages[i].HasReasoning() {
		t.mu.Unlock()
		return false
	}
	t.expanded[i] = !t.expanded[i]
	open := t.expanded[i]
	t.mu.Unlock()
	t.notify()
	return open
}

// LastAnswer returns the content of the most recent assistant message.
func (t *Transcript) LastAnswer() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == api.RoleAssistant {
			return t.messages[i].Content, true
		}
	}
	return "", false
}
