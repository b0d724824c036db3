// Package chats owns the chat history list shown in the sidebar.
package chats

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/pdfretriever/pdfretriever/internal/api"
)

// Groups partitions chats for display
type Groups struct {
	Today    []api.ChatSummary
	Previous []api.ChatSummary
}

// Len returns the total number of chats in both groups.
func (g Groups) Len() int {
	return len(g.Today) + len(g.Previous)
}

// Group splits chats into those created on now's calendar day and the rest.
// Order within a group follows the input. Chats without a creation time are
// treated as created today.
func Group(chats []api.ChatSummary, now time.Time) Groups {
	var g Groups
	for _, c := range chats {
		if c.CreatedAt.IsZero() || sameDay(c.CreatedAt.In(now.Location()), now) {
			g.Today = append(g.Today, c)
		} else {
			g.Previous = append(g.Previous, c)
		}
	}
	return g
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Label is the text a chat is listed under.
func Label(c api.ChatSummary) string {
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	if c.FileName != "" {
		return c.FileName
	}
	return "Untitled Chat"
}

// Filter keeps chats whose label or file name fuzzily matches query,
// preserving order. An empty query keeps everything.
func Filter(chats []api.ChatSummary, query string) []api.ChatSummary {
	query = strings.TrimSpace(query)
	if query == "" {
		return chats
	}
	var out []api.ChatSummary
	for _, c := range chats {
		if fuzzy.MatchFold(query, Label(c)) || fuzzy.MatchFold(query, c.FileName) {
			out = append(out, c)
		}
	}
	return out
}

// Backend is the subset of the API client the store needs
type Backend interface {
	ListChats(ctx context.Context) ([]api.ChatSummary, error)
	DeleteChat(ctx context.Context, chatID string) error
}

// Store holds the fetched chat list. Safe for concurrent use.
type Store struct {
	backend Backend
	logger  *log.Logger

	mu    sync.RWMutex
	items []api.ChatSummary
	seq   uint64
}

// NewStore creates an empty list backed by backend
func NewStore(backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{backend: backend, logger: logger.WithPrefix("chats")}
}

// Refresh re-fetches the list. On failure the previous list is kept. A
// refresh that finishes after a newer one started, or after Clear, is
// dropped.
func (s *Store) Refresh(ctx context.Context) ([]api.ChatSummary, error) {
	s.mu.Lock()
	s.seq++
	token := s.seq
	s.mu.Unlock()

	items, err := s.backend.ListChats(ctx)
	if err != nil {
		s.logger.Warn("chat list refresh failed", "err", err)
		return s.Items(), fmt.Errorf("failed to load chats: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.seq {
		s.logger.Debug("discarding stale chat list", "token", token, "latest", s.seq)
		return cloneList(s.items), nil
	}
	s.items = cloneList(items)
	return cloneList(s.items), nil
}

// Delete removes a chat on the backend and then from the local list.
func (s *Store) Delete(ctx context.Context, chatID string) error {
	if err := s.backend.DeleteChat(ctx, chatID); err != nil {
		return fmt.Errorf("failed to delete chat %s: %w", chatID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0:0]
	for _, c := range s.items {
		if c.ChatID != chatID {
			kept = append(kept, c)
		}
	}
	s.items = kept
	return nil
}

// Clear empties the list and invalidates in-flight refreshes.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.items = nil
}

// Items returns a copy of the current list.
func (s *Store) Items() []api.ChatSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneList(s.items)
}

// Find returns the summary for chatID.
func (s *Store) Find(chatID string) (api.ChatSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.items {
		if c.ChatID == chatID {
			return c, true
		}
	}
	return api.ChatSummary{}, false
}

func cloneList(in []api.ChatSummary) []api.ChatSummary {
	if in == nil {
		return nil
	}
	out := make([]api.ChatSummary, len(in))
	copy(out, in)
	return out
}
