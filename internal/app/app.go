package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/chats"
	"github.com/pdfretriever/pdfretriever/internal/config"
	"github.com/pdfretriever/pdfretriever/internal/notifications"
	"github.com/pdfretriever/pdfretriever/internal/session"
	"github.com/pdfretriever/pdfretriever/internal/storage"
	"github.com/pdfretriever/pdfretriever/internal/transcript"
	"github.com/pdfretriever/pdfretriever/internal/workspace"
)

// ErrSessionExpired is returned when the stored token is no longer accepted.
var ErrSessionExpired = errors.New("session expired, please log in again")

// EventKind identifies what changed
type EventKind int

const (
	WorkspaceChanged EventKind = iota
	TranscriptChanged
	ChatsChanged
	SessionChanged
)

// Event is published to subscribers after state changes
type Event struct {
	Kind      EventKind
	Workspace workspace.Snapshot
}

// App wires the client state owners together
type App struct {
	Config        *config.Config
	Logger        *log.Logger
	Session       *session.Store
	Client        *api.Client
	Chats         *chats.Store
	Workspace     *workspace.Workspace
	Transcript    *transcript.Transcript
	Cache         storage.DetailCache
	Notifications *notifications.Manager
	Paths         *storage.PathManager

	mu        sync.RWMutex
	user      *api.User
	listeners []func(Event)
	now       func() time.Time
}

// NewApp creates the application from cfg
func NewApp(cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}

	paths := storage.NewPathManager(cfg.Data.Directory)
	if err := paths.ValidatePaths(); err != nil {
		return nil, err
	}
	previewDir, err := paths.PreviewDir()
	if err != nil {
		return nil, err
	}

	sess, err := session.Open(cfg.Session.File)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	cache, err := storage.OpenCache(cfg.Cache.Enabled, cfg.Cache.Path)
	if err != nil {
		logger.Warn("detail cache unavailable, using memory", "path", cfg.Cache.Path, "err", err)
		cache = storage.NewMemoryCache()
	}

	client := api.NewClient(api.Options{
		BaseURL: cfg.Server.URL,
		Timeout: cfg.Server.Timeout,
		Retries: cfg.Server.Retries,
		Tokens:  sess,
		Logger:  logger,
	})

	a := &App{
		Config:        cfg,
		Logger:        logger,
		Session:       sess,
		Client:        client,
		Cache:         cache,
		Notifications: notifications.NewManager(cfg.Toast.Duration),
		Paths:         paths,
		now:           time.Now,
	}
	a.Chats = chats.NewStore(client, logger)
	a.Transcript = transcript.New(transcript.Options{
		Backend:      client,
		Settings:     sess,
		DefaultModel: cfg.Model,
		Logger:       logger,
		OnChange:     func() { a.emit(Event{Kind: TranscriptChanged}) },
	})
	a.Workspace = workspace.New(workspace.Options{
		Backend:          client,
		Settings:         sess,
		DefaultModel:     cfg.Model,
		Cache:            cache,
		User:             a.username,
		PreviewDir:       previewDir,
		ProgressInterval: cfg.Upload.ProgressInterval,
		ProgressStep:     cfg.Upload.ProgressStep,
		ProgressCeiling:  cfg.Upload.ProgressCeiling,
		CompletionDelay:  cfg.Upload.CompletionDelay,
		MaxSize:          cfg.Upload.MaxSize,
		Logger:           logger,
		OnChange:         func(s workspace.Snapshot) { a.emit(Event{Kind: WorkspaceChanged, Workspace: s}) },
		OnChatLoaded:     a.Transcript.Replace,
		OnChatCreated:    a.chatCreated,
	})

	logger.Debug("application initialized", "server", cfg.Server.URL, "cache", cfg.Cache.Enabled)
	return a, nil
}

// Subscribe registers fn for state change events.
func (a *App) Subscribe(fn func(Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *App) emit(e Event) {
	a.mu.RLock()
	listeners := slices.Clone(a.listeners)
	a.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}

// User returns the cached profile, or nil before bootstrap.
func (a *App) User() *api.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

func (a *App) username() string {
	if u := a.User(); u != nil {
		return u.Username
	}
	return a.Session.Get().Username
}

// Authenticated reports whether a session token is held.
func (a *App) Authenticated() bool {
	return a.Session.Authenticated()
}

// Bootstrap loads the profile and chat list concurrently. A rejected token
// tears the session down.
func (a *App) Bootstrap(ctx context.Context) error {
	if !a.Session.Authenticated() {
		return nil
	}
	if a.Session.Expired(a.now()) {
		a.Logger.Info("stored token expired")
		if err := a.Logout(ctx); err != nil {
			return err
		}
		return ErrSessionExpired
	}

	// The profile fetch runs on ctx so a failing chat list cannot cancel it
	// and hide a rejected token.
	var user *api.User
	var meErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, meErr = a.Client.Me(ctx)
		return meErr
	})
	g.Go(func() error {
		_, err := a.Chats.Refresh(gctx)
		return err
	})

	err := g.Wait()
	if api.IsUnauthorized(meErr) || api.IsUnauthorized(err) {
		a.Logger.Warn("token rejected, logging out", "err", err)
		if lerr := a.Logout(ctx); lerr != nil {
			return lerr
		}
		return ErrSessionExpired
	}

	if user != nil {
		a.mu.Lock()
		a.user = user
		a.mu.Unlock()
		if err := a.Session.SetUsername(user.Username); err != nil {
			a.Logger.Warn("failed to persist username", "err", err)
		}
	}
	a.emit(Event{Kind: SessionChanged})
	a.emit(Event{Kind: ChatsChanged})

	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	a.Logger.Info("session ready", "user", a.username(), "chats", len(a.Chats.Items()))
	return nil
}

// Login exchanges credentials for a token and bootstraps the session.
func (a *App) Login(ctx context.Context, username, password string) error {
	if a.Session.Authenticated() {
		if err := a.Logout(ctx); err != nil {
			return err
		}
	}
	token, err := a.Client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := a.Session.SetToken(token); err != nil {
		return err
	}
	a.Logger.Info("logged in", "user", username)
	return a.Bootstrap(ctx)
}

// Register creates an account. The user still has to log in.
func (a *App) Register(ctx context.Context, username, password string) error {
	if err := a.Client.Register(ctx, username, password); err != nil {
		return err
	}
	a.Logger.Info("registered", "user", username)
	return nil
}

// Logout clears the token, profile, chat list, active chat and cached
// details. The API key and model selection are kept.
func (a *App) Logout(ctx context.Context) error {
	username := a.username()
	a.clearLocalState()

	if username != "" {
		if err := a.Cache.Purge(ctx, username); err != nil {
			a.Logger.Warn("failed to purge cache", "err", err)
		}
	}
	if err := a.Session.Logout(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	a.Logger.Info("logged out", "user", username)
	a.emit(Event{Kind: SessionChanged})
	return nil
}

func (a *App) clearLocalState() {
	a.Workspace.Reset()
	a.Transcript.Reset()
	a.Chats.Clear()
	a.Notifications.Clear()
	a.mu.Lock()
	a.user = nil
	a.mu.Unlock()
	a.emit(Event{Kind: ChatsChanged})
}

// HandleError tears the session down when err says the token was rejected
// and reports whether it did.
func (a *App) HandleError(ctx context.Context, err error) bool {
	if err == nil || !api.IsUnauthorized(err) || !a.Session.Authenticated() {
		return false
	}
	if lerr := a.Logout(ctx); lerr != nil {
		a.Logger.Error("logout after rejected token failed", "err", lerr)
	}
	a.Notifications.Warning(ErrSessionExpired.Error())
	return true
}

// SetAPIKey stores the model provider key.
func (a *App) SetAPIKey(key string) error {
	if err := a.Session.SetAPIKey(key); err != nil {
		return err
	}
	a.emit(Event{Kind: SessionChanged})
	return nil
}

// SetModel stores the model selection. Only configured models are accepted.
func (a *App) SetModel(model string) error {
	if !slices.Contains(a.Config.Models, model) {
		return fmt.Errorf("unknown model %q, choose one of %v", model, a.Config.Models)
	}
	if err := a.Session.SetModel(model); err != nil {
		return err
	}
	a.emit(Event{Kind: SessionChanged})
	return nil
}

// Model returns the selected model.
func (a *App) Model() string {
	return a.Session.Model(a.Config.Model)
}

// RefreshChats re-fetches the chat list.
func (a *App) RefreshChats(ctx context.Context) error {
	_, err := a.Chats.Refresh(ctx)
	a.emit(Event{Kind: ChatsChanged})
	return err
}

// DeleteChat removes a chat and clears the workspace if it was active.
func (a *App) DeleteChat(ctx context.Context, chatID string) error {
	if err := a.Chats.Delete(ctx, chatID); err != nil {
		return err
	}
	if err := a.Cache.DeleteChat(ctx, a.username(), chatID); err != nil {
		a.Logger.Warn("failed to drop cached chat", "chat", chatID, "err", err)
	}
	a.Workspace.Forget(chatID)
	a.emit(Event{Kind: ChatsChanged})
	return nil
}

// chatCreated refreshes the chat list after an upload. The list is always
// re-fetched directly.
func (a *App) chatCreated(ctx context.Context, chatID string) {
	a.Logger.Debug("refreshing chats after upload", "chat", chatID)
	if err := a.RefreshChats(ctx); err != nil && !api.IsCanceled(err) {
		a.Notifications.Warning("Could not refresh chat history")
	}
}

// WatchSession follows logins and logouts made by other processes until
// ctx is done.
func (a *App) WatchSession(ctx context.Context) error {
	last := a.Session.Get()
	return a.Session.Watch(ctx, func(s session.Session) {
		prev := last
		last = s
		switch {
		case s.Token == "" && prev.Token != "":
			a.Logger.Info("logged out elsewhere")
			a.clearLocalState()
			a.emit(Event{Kind: SessionChanged})
		case s.Token != "" && s.Token != prev.Token:
			a.Logger.Info("logged in elsewhere")
			a.clearLocalState()
			if err := a.Bootstrap(ctx); err != nil {
				a.Notifications.Warning(err.Error())
			}
		default:
			a.emit(Event{Kind: SessionChanged})
		}
	})
}

// Close releases the cache and removes temporary previews.
func (a *App) Close() error {
	a.Workspace.Reset()
	a.Notifications.Clear()
	return a.Cache.Close()
}
