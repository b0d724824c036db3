package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pdfretriever/pdfretriever/internal/api"
)

// ErrNotFound is returned when no cached copy exists
var ErrNotFound = errors.New("not cached")

// CachedDetail is a chat detail with the time it was fetched
type CachedDetail struct {
	Detail    api.ChatDetail
	FetchedAt time.Time
}

// DetailCache keeps the last fetched copy of each chat for offline fallback.
// Entries are scoped by username so one user never sees another's chats.
type DetailCache interface {
	Put(ctx context.Context, username string, detail *api.ChatDetail) error
	Get(ctx context.Context, username, chatID string) (*CachedDetail, error)
	DeleteChat(ctx context.Context, username, chatID string) error
	Purge(ctx context.Context, username string) error
	Close() error
}
