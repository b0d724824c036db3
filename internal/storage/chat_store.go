package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/pdfretriever/pdfretriever/internal/api"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_details (
	chat_id    TEXT NOT NULL,
	username   TEXT NOT NULL,
	payload    TEXT NOT NULL,
	fetched_at INTEGER NOT NULL,
	PRIMARY KEY (username, chat_id)
);
CREATE INDEX IF NOT EXISTS idx_chat_details_username ON chat_details(username);
`

// SQLiteCache implements DetailCache using SQLite/libsql
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteCache opens or creates the cache database at dbPath
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("libsql", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c := &SQLiteCache{db: db, now: time.Now}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug("detail cache initialized", "path", dbPath)
	return c, nil
}

func (c *SQLiteCache) initSchema() error {
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Put stores or replaces the cached copy of detail
func (c *SQLiteCache) Put(ctx context.Context, username string, detail *api.ChatDetail) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to marshal chat detail: %w", err)
	}

	query := `INSERT INTO chat_details (chat_id, username, payload, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username, chat_id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`
	if _, err := c.db.ExecContext(ctx, query, detail.ChatID, username, string(payload), c.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to cache chat %s: %w", detail.ChatID, err)
	}
	return nil
}

// Get returns the cached copy of chatID or ErrNotFound
func (c *SQLiteCache) Get(ctx context.Context, username, chatID string) (*CachedDetail, error) {
	var (
		payload   string
		fetchedAt int64
	)
	query := `SELECT payload, fetched_at FROM chat_details WHERE username = ? AND chat_id = ?`
	err := c.db.QueryRowContext(ctx, query, username, chatID).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached chat %s: %w", chatID, err)
	}

	var out CachedDetail
	if err := json.Unmarshal([]byte(payload), &out.Detail); err != nil {
		return nil, fmt.Errorf("failed to decode cached chat %s: %w", chatID, err)
	}
	out.FetchedAt = time.UnixMilli(fetchedAt)
	return &out, nil
}

// DeleteChat drops the cached copy of chatID
func (c *SQLiteCache) DeleteChat(ctx context.Context, username, chatID string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM chat_details WHERE username = ? AND chat_id = ?`, username, chatID); err != nil {
		return fmt.Errorf("failed to delete cached chat %s: %w", chatID, err)
	}
	return nil
}

// Purge drops every cached chat of username
func (c *SQLiteCache) Purge(ctx context.Context, username string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM chat_details WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		log.Debug("detail cache purged", "user", username, "rows", n)
	}
	return nil
}

// Close closes the database
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
