package session

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 150 * time.Millisecond

// Watch reloads the session whenever another process rewrites the file and
// calls onChange with the new value. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(Session)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create session watcher: %w", err)
	}
	defer watcher.Close()

	// The file is replaced by rename, so the directory is watched.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	name := filepath.Clean(s.path)
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			pending = time.After(watchDebounce)

		case <-pending:
			pending = nil
			changed, err := s.Reload()
			if err != nil {
				log.Warn("session reload failed", "file", s.path, "err", err)
				continue
			}
			if changed {
				log.Debug("session changed on disk", "file", s.path)
				onChange(s.Get())
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("session watcher error", "err", err)
		}
	}
}
