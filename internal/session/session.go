package session

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by TokenExpiry when the token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// Session is the persisted client state
type Session struct {
	Token    string `toml:"token"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
	Username string `toml:"username"`
}

// Store owns the session file. All methods are safe for concurrent use.
type Store struct {
	path string

	mu   sync.RWMutex
	data Session
}

// Open reads the session file at path. A missing file yields an empty session.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := load(path)
	if err != nil {
		return nil, err
	}
	s.data = data
	return s, nil
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current session.
func (s *Store) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Token
}

// APIKey returns the stored model provider key.
func (s *Store) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.APIKey
}

// Model returns the selected model, or fallback when none is stored.
func (s *Store) Model(fallback string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.Model == "" {
		return fallback
	}
	return s.data.Model
}

// Authenticated reports whether a token is held.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// SetToken stores the access token after login.
func (s *Store) SetToken(token string) error {
	return s.update(func(d *Session) { d.Token = token })
}

// SetUsername caches the profile name of the token owner.
func (s *Store) SetUsername(name string) error {
	return s.update(func(d *Session) { d.Username = name })
}

// SetAPIKey stores the model provider key.
func (s *Store) SetAPIKey(key string) error {
	return s.update(func(d *Session) { d.APIKey = key })
}

// SetModel stores the model selection.
func (s *Store) SetModel(model string) error {
	return s.update(func(d *Session) { d.Model = model })
}

// Logout clears the credentials. The API key and model survive.
func (s *Store) Logout() error {
	return s.update(func(d *Session) {
		d.Token = ""
		d.Username = ""
	})
}

// TokenExpiry returns the exp claim of the held token. The signature is not
// verified; the backend remains the authority.
func (s *Store) TokenExpiry() (time.Time, error) {
	token := s.Token()
	if token == "" {
		return time.Time{}, ErrNoExpiry
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read expiry: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// Expired reports whether the held token is past its exp claim at now.
// Tokens that cannot be decoded are not considered expired.
func (s *Store) Expired(now time.Time) bool {
	exp, err := s.TokenExpiry()
	if err != nil {
		return false
	}
	return !now.Before(exp)
}

// Reload re-reads the file and reports whether the session changed.
func (s *Store) Reload() (bool, error) {
	data, err := load(s.path)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if data == s.data {
		return false, nil
	}
	s.data = data
	return true, nil
}

func (s *Store) update(fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.data
	fn(&next)
	if err := save(s.path, next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func load(path string) (Session, error) {
	var data Session
	if _, err := toml.DecodeFile(path, &data); err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("failed to decode session file %s: %w", path, err)
	}
	return data, nil
}

// save writes through a temp file and rename so a watcher never sees a
// half-written session.
func save(path string, data Session) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory %s: %w", dir, err)
	}

	file, err := os.CreateTemp(dir, ".session-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	tmp := file.Name()
	defer os.Remove(tmp)

	if err := file.Chmod(0o600); err != nil {
		file.Close()
		return fmt.Errorf("failed to set session file mode: %w", err)
	}

	writer := bufio.NewWriter(file)
	if err := toml.NewEncoder(writer).Encode(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush session file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace session file %s: %w", path, err)
	}
	return nil
}

// MaskKey hides all but the last four characters of an API key
func MaskKey(k string) string {
	switch {
	case k == "":
		return "not set"
	case len(k) <= 4:
		return "••••"
	default:
		return "••••" + k[len(k)-4:]
	}
}
