package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathManager resolves the directories the client writes to under its data
// directory
type PathManager struct {
	dataDir string
}

// NewPathManager creates a path manager rooted at dataDir
func NewPathManager(dataDir string) *PathManager {
	return &PathManager{dataDir: dataDir}
}

// DataDir returns the data directory, creating it if needed
func (pm *PathManager) DataDir() (string, error) {
	if err := os.MkdirAll(pm.dataDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create data directory %s: %w", pm.dataDir, err)
	}
	return pm.dataDir, nil
}

// PreviewDir returns the directory decoded PDF previews are written to.
// It lives in the system temp directory and is safe to wipe at any time.
func (pm *PathManager) PreviewDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "pdfretriever-previews")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create preview directory: %w", err)
	}
	return dir, nil
}

// DefaultCachePath returns the cache database location
func (pm *PathManager) DefaultCachePath() string {
	return filepath.Join(pm.dataDir, "cache.db")
}

// ValidatePaths ensures all necessary directories exist
func (pm *PathManager) ValidatePaths() error {
	if _, err := pm.DataDir(); err != nil {
		return err
	}
	if _, err := pm.PreviewDir(); err != nil {
		return err
	}
	return nil
}

// OpenCache returns the libsql cache at path when enabled, otherwise an
// in-memory cache.
func OpenCache(enabled bool, path string) (DetailCache, error) {
	if !enabled {
		return NewMemoryCache(), nil
	}
	return NewSQLiteCache(path)
}
