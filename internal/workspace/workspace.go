// Package workspace coordinates document upload, chat selection and the
// shared state the chat, analysis and preview panels render from.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/preview"
	"github.com/pdfretriever/pdfretriever/internal/storage"
)

// State of the workspace
type State int

const (
	Empty State = iota
	Uploading
	Ready
)

func (s State) String() string {
	switch s {
	case Uploading:
		return "uploading"
	case Ready:
		return "ready"
	default:
		return "empty"
	}
}

var (
	// ErrUploadCanceled is returned by UploadDocument when the upload was
	// aborted by CancelUpload, a newer operation or the caller's context.
	ErrUploadCanceled = errors.New("upload canceled")
	// ErrUploadInProgress rejects operations that would race an upload.
	ErrUploadInProgress = errors.New("an upload is in progress")
	// ErrSuperseded is returned when a newer selection or upload replaced
	// the result of this one before it could be applied.
	ErrSuperseded = errors.New("superseded by a newer request")
	// ErrFileTooLarge is returned when the document exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// Backend is the subset of the API client the workspace needs
type Backend interface {
	GetChat(ctx context.Context, chatID string) (*api.ChatDetail, error)
	Upload(ctx context.Context, in api.UploadRequest) (*api.UploadResult, error)
}

// Settings supplies the stored key and model selection
type Settings interface {
	APIKey() string
	Model(fallback string) string
}

// Snapshot is a copy of the observable workspace state
type Snapshot struct {
	State         State
	ChatID        string
	Title         string
	FileName      string
	ProcessedData *api.ProcessedData
	// PreviewPath is the local PDF shown in the preview pane, or empty.
	PreviewPath string
	Progress    int
	FromCache   bool
	CachedAt    time.Time
}

// Options configures a Workspace
type Options struct {
	Backend      Backend
	Settings     Settings
	DefaultModel string

	// Cache is optional. User scopes cache entries.
	Cache storage.DetailCache
	User  func() string

	PreviewDir string

	ProgressInterval time.Duration
	ProgressStep     int
	ProgressCeiling  int
	CompletionDelay  time.Duration
	MaxSize          int64

	Logger *log.Logger

	// OnChange is called after every state mutation, progress ticks included.
	OnChange func(Snapshot)
	// OnChatLoaded hands the history of a newly active chat to the
	// transcript. An empty chatID means the workspace was cleared.
	OnChatLoaded func(chatID string, history []api.Message)
	// OnChatCreated is called after an upload produced a new chat.
	OnChatCreated func(ctx context.Context, chatID string)
}

// Workspace owns the active document. Safe for concurrent use.
type Workspace struct {
	opts   Options
	logger *log.Logger

	// applyMu orders result application together with the callbacks it
	// triggers, so listeners observe results in token order.
	applyMu sync.Mutex

	mu          sync.Mutex
	seq         uint64
	state       State
	chatID      string
	title       string
	fileName    string
	data        *api.ProcessedData
	previewPath string
	previewTemp bool
	progress    int
	fromCache   bool
	cachedAt    time.Time
	cancel      context.CancelFunc
}

// New creates an empty workspace
func New(opts Options) *Workspace {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 800 * time.Millisecond
	}
	if opts.ProgressStep <= 0 {
		opts.ProgressStep = 10
	}
	if opts.ProgressCeiling <= 0 {
		opts.ProgressCeiling = 90
	}
	if opts.User == nil {
		opts.User = func() string { return "" }
	}
	return &Workspace{opts: opts, logger: opts.Logger.WithPrefix("workspace")}
}

// Snapshot returns a copy of the current state.
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() Snapshot {
	return Snapshot{
		State:         w.state,
		ChatID:        w.chatID,
		Title:         w.title,
		FileName:      w.fileName,
		ProcessedData: w.data,
		PreviewPath:   w.previewPath,
		Progress:      w.progress,
		FromCache:     w.fromCache,
		CachedAt:      w.cachedAt,
	}
}

// Uploading reports whether an upload is in flight.
func (w *Workspace) Uploading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == Uploading
}

func (w *Workspace) notify() {
	if w.opts.OnChange != nil {
		w.opts.OnChange(w.Snapshot())
	}
}

func (w *Workspace) chatLoaded(chatID string, history []api.Message) {
	if w.opts.OnChatLoaded != nil {
		w.opts.OnChatLoaded(chatID, history)
	}
}

// clearLocked drops the active document and returns the temp preview the
// caller must remove.
func (w *Workspace) clearLocked(next State) string {
	stale := ""
	if w.previewTemp {
		stale = w.previewPath
	}
	if w.state != next {
		w.logger.Info("state transition", "from", w.state, "to", next)
	}
	w.state = next
	w.chatID = ""
	w.title = ""
	w.fileName = ""
	w.data = nil
	w.previewPath = ""
	w.previewTemp = false
	w.progress = 0
	w.fromCache = false
	w.cachedAt = time.Time{}
	return stale
}

func (w *Workspace) removePreview(path string) {
	if err := preview.Remove(path); err != nil {
		w.logger.Warn("failed to remove preview", "path", path, "err", err)
	}
}

// SelectChat loads a stored chat and makes it active. Only the result of
// the most recent selection is applied; older ones return ErrSuperseded.
// On failure the current state is left unchanged.
func (w *Workspace) SelectChat(ctx context.Context, chatID string) error {
	if chatID == "" {
		return errors.New("chat id is required")
	}

	w.mu.Lock()
	if w.state == Uploading {
		w.mu.Unlock()
		return ErrUploadInProgress
	}
	w.seq++
	token := w.seq
	w.mu.Unlock()

	w.logger.Debug("selecting chat", "chat", chatID, "token", token)

	var (
		fromCache bool
		cachedAt  time.Time
	)
	detail, err := w.opts.Backend.GetChat(ctx, chatID)
	if err != nil {
		if cached := w.cachedFallback(ctx, chatID, err); cached != nil {
			detail = &cached.Detail
			fromCache = true
			cachedAt = cached.FetchedAt
		} else {
			w.logger.Warn("failed to load chat", "chat", chatID, "err", err)
			return fmt.Errorf("failed to load chat: %w", err)
		}
	} else if w.opts.Cache != nil {
		if err := w.opts.Cache.Put(ctx, w.opts.User(), detail); err != nil {
			w.logger.Warn("failed to cache chat", "chat", chatID, "err", err)
		}
	}

	previewPath := ""
	if detail.PDFBase64 != "" {
		p, err := preview.WriteTemp(w.opts.PreviewDir, detail.PDFBase64)
		if err != nil {
			w.logger.Warn("failed to decode stored PDF", "chat", chatID, "err", err)
		} else {
			previewPath = p
		}
	}

	w.applyMu.Lock()
	defer w.applyMu.Unlock()

	w.mu.Lock()
	if token != w.seq {
		latest := w.seq
		w.mu.Unlock()
		w.removePreview(previewPath)
		w.logger.Debug("discarding stale chat response", "chat", chatID, "token", token, "latest", latest)
		return ErrSuperseded
	}
	stale := w.clearLocked(Ready)
	w.chatID = detail.ChatID
	w.title = detail.Title
	w.fileName = detail.FileName
	w.data = detail.ProcessedData
	if w.fileName == "" && w.data != nil {
		w.fileName = w.data.FileName
	}
	w.previewPath = previewPath
	w.previewTemp = previewPath != ""
	w.fromCache = fromCache
	w.cachedAt = cachedAt
	w.mu.Unlock()

	w.removePreview(stale)
	w.notify()

	history := make([]api.Message, len(detail.History))
	copy(history, detail.History)
	w.chatLoaded(detail.ChatID, history)

	w.logger.Info("chat loaded", "chat", detail.ChatID, "messages", len(history), "cached", fromCache)
	return nil
}

// cachedFallback returns the cached copy of chatID when the fetch failed
// without the backend answering.
func (w *Workspace) cachedFallback(ctx context.Context, chatID string, fetchErr error) *storage.CachedDetail {
	if w.opts.Cache == nil || api.IsAPIError(fetchErr) || api.IsCanceled(fetchErr) ||
		errors.Is(fetchErr, api.ErrNotAuthenticated) {
		return nil
	}
	cached, err := w.opts.Cache.Get(ctx, w.opts.User(), chatID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			w.logger.Warn("cache lookup failed", "chat", chatID, "err", err)
		}
		return nil
	}
	w.logger.Warn("backend unreachable, using cached chat", "chat", chatID, "fetched", humanize.Time(cached.FetchedAt), "err", fetchErr)
	return cached
}

// UploadDocument uploads a PDF and makes the resulting chat active. It is a
// no-op when path or the API key is empty.
func (w *Workspace) UploadDocument(ctx context.Context, path string) error {
	apiKey := w.opts.Settings.APIKey()
	if path == "" || apiKey == "" {
		return nil
	}

	info, err := preview.CheckPDF(path)
	if err != nil {
		return fmt.Errorf("cannot upload %s: %w", filepath.Base(path), err)
	}
	if w.opts.MaxSize > 0 && info.Size() > w.opts.MaxSize {
		return fmt.Errorf("%s is %s, limit is %s: %w", filepath.Base(path),
			humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(w.opts.MaxSize)), ErrFileTooLarge)
	}

	uctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.applyMu.Lock()
	w.mu.Lock()
	if w.state == Uploading {
		w.mu.Unlock()
		w.applyMu.Unlock()
		return ErrUploadInProgress
	}
	w.seq++
	token := w.seq
	stale := w.clearLocked(Uploading)
	w.fileName = filepath.Base(path)
	w.previewPath = path
	w.cancel = cancel
	w.mu.Unlock()

	w.removePreview(stale)
	w.notify()
	w.chatLoaded("", nil)
	w.applyMu.Unlock()

	stop := make(chan struct{})
	var ticker sync.WaitGroup
	ticker.Add(1)
	go func() {
		defer ticker.Done()
		w.simulateProgress(token, stop)
	}()
	defer func() {
		close(stop)
		ticker.Wait()
		w.mu.Lock()
		if token == w.seq {
			w.cancel = nil
		}
		w.mu.Unlock()
	}()

	w.logger.Info("uploading document", "file", filepath.Base(path), "size", humanize.Bytes(uint64(info.Size())), "token", token)

	res, err := w.opts.Backend.Upload(uctx, api.UploadRequest{
		Path:   path,
		APIKey: apiKey,
		Model:  w.opts.Settings.Model(w.opts.DefaultModel),
	})
	if err != nil {
		return w.uploadFailed(token, err)
	}

	w.mu.Lock()
	if token != w.seq {
		w.mu.Unlock()
		return ErrUploadCanceled
	}
	w.progress = 100
	w.mu.Unlock()
	w.notify()

	if w.opts.CompletionDelay > 0 {
		timer := time.NewTimer(w.opts.CompletionDelay)
		select {
		case <-timer.C:
		case <-uctx.Done():
			timer.Stop()
		}
	}

	w.applyMu.Lock()
	w.mu.Lock()
	if token != w.seq {
		w.mu.Unlock()
		w.applyMu.Unlock()
		return ErrUploadCanceled
	}
	if uctx.Err() != nil {
		w.mu.Unlock()
		w.applyMu.Unlock()
		return w.uploadFailed(token, uctx.Err())
	}
	w.logger.Info("state transition", "from", w.state, "to", Ready)
	w.state = Ready
	w.chatID = res.ChatID
	w.data = res.ProcessedData
	if res.FileName != "" {
		w.fileName = res.FileName
	}
	w.progress = 0
	w.cancel = nil
	w.mu.Unlock()

	w.notify()
	w.chatLoaded(res.ChatID, nil)
	w.applyMu.Unlock()

	w.logger.Info("upload complete", "chat", res.ChatID)
	if w.opts.OnChatCreated != nil {
		w.opts.OnChatCreated(ctx, res.ChatID)
	}
	return nil
}

// uploadFailed returns the workspace to Empty unless a newer operation has
// already taken over.
func (w *Workspace) uploadFailed(token uint64, err error) error {
	w.mu.Lock()
	if token != w.seq {
		w.mu.Unlock()
		w.logger.Debug("upload superseded", "token", token, "err", err)
		return ErrUploadCanceled
	}
	w.clearLocked(Empty)
	w.cancel = nil
	w.mu.Unlock()
	w.notify()

	if api.IsCanceled(err) {
		w.logger.Info("upload canceled")
		return ErrUploadCanceled
	}
	w.logger.Error("upload failed", "err", err)
	return fmt.Errorf("upload failed: %w", err)
}

// simulateProgress advances the cosmetic progress value until stopped. It
// never passes the configured ceiling.
func (w *Workspace) simulateProgress(token uint64, stop <-chan struct{}) {
	t := time.NewTicker(w.opts.ProgressInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			w.mu.Lock()
			if token != w.seq || w.state != Uploading {
				w.mu.Unlock()
				return
			}
			changed := false
			if w.progress < w.opts.ProgressCeiling {
				w.progress = min(w.progress+w.opts.ProgressStep, w.opts.ProgressCeiling)
				changed = true
			}
			w.mu.Unlock()
			if changed {
				w.notify()
			}
		}
	}
}

// CancelUpload aborts the in-flight upload and returns to Empty. It reports
// whether there was an upload to cancel.
func (w *Workspace) CancelUpload() bool {
	w.mu.Lock()
	if w.state != Uploading {
		w.mu.Unlock()
		return false
	}
	w.seq++
	cancel := w.cancel
	w.cancel = nil
	w.clearLocked(Empty)
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.logger.Info("upload canceled by user")
	w.notify()
	return true
}

// NewChat discards the active document so the next upload starts fresh.
func (w *Workspace) NewChat() {
	w.reset("new chat")
}

// Reset clears everything, aborting any upload and dropping in-flight
// selections. Used on logout.
func (w *Workspace) Reset() {
	w.reset("reset")
}

func (w *Workspace) reset(reason string) {
	w.applyMu.Lock()
	defer w.applyMu.Unlock()

	w.mu.Lock()
	w.seq++
	cancel := w.cancel
	w.cancel = nil
	stale := w.clearLocked(Empty)
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.removePreview(stale)
	w.logger.Debug("workspace cleared", "reason", reason)
	w.notify()
	w.chatLoaded("", nil)
}

// Forget clears the workspace if chatID is the active chat. Used after a
// chat is deleted.
func (w *Workspace) Forget(chatID string) bool {
	w.mu.Lock()
	active := w.chatID == chatID && w.state == Ready
	w.mu.Unlock()
	if active {
		w.reset("chat deleted")
	}
	return active
}
