package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pdfretriever/pdfretriever/internal/api"
)

// MemoryCache is a process-local DetailCache used when the database cache
// is disabled.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]map[string]memoryEntry
}

type memoryEntry struct {
	payload   []byte
	fetchedAt time.Time
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]map[string]memoryEntry)}
}

func (m *MemoryCache) Put(_ context.Context, username string, detail *api.ChatDetail) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to marshal chat detail: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.entries[username]
	if !ok {
		user = make(map[string]memoryEntry)
		m.entries[username] = user
	}
	user[detail.ChatID] = memoryEntry{payload: payload, fetchedAt: time.Now()}
	return nil
}

func (m *MemoryCache) Get(_ context.Context, username, chatID string) (*CachedDetail, error) {
	m.mu.Lock()
	entry, ok := m.entries[username][chatID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	out := &CachedDetail{FetchedAt: entry.fetchedAt}
	if err := json.Unmarshal(entry.payload, &out.Detail); err != nil {
		return nil, fmt.Errorf("failed to decode cached chat %s: %w", chatID, err)
	}
	return out, nil
}

func (m *MemoryCache) DeleteChat(_ context.Context, username, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries[username], chatID)
	return nil
}

func (m *MemoryCache) Purge(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, username)
	return nil
}

func (m *MemoryCache) Close() error {
	return nil
}
