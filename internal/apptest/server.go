// Package apptest provides an in-memory backend for tests.
package apptest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/config"
)

// Server is an in-memory backend. Tokens are "tok-<user>" and every
// password is "pw".
type Server struct {
	mu      sync.Mutex
	chats   map[string][]api.ChatSummary
	details map[string]*api.ChatDetail
	revoked map[string]bool
	nextID  int

	// Wrap, when set, wraps the handler started by Start.
	Wrap func(http.Handler) http.Handler
}

// NewServer seeds alice with chat a1 (today) and bob with b1 (older).
func NewServer() *Server {
	return &Server{
		chats: map[string][]api.ChatSummary{
			"alice": {{ChatID: "a1", Title: "Alice report", CreatedAt: time.Now()}},
			"bob":   {{ChatID: "b1", Title: "Bob lease", CreatedAt: time.Now().AddDate(0, 0, -3)}},
		},
		details: map[string]*api.ChatDetail{
			"a1": {ChatID: "a1", History: []api.Message{{Role: api.RoleUser, Content: "q"}}, ProcessedData: &api.ProcessedData{
				FileName: "alice.pdf",
				Sections: []api.Section{{Title: "Summary", Content: "Key figures", PageRange: "1-2"}},
			}},
			"b1": {ChatID: "b1", ProcessedData: &api.ProcessedData{FileName: "bob.pdf"}},
		},
		revoked: map[string]bool{},
	}
}

func (f *Server) user(r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !strings.HasPrefix(token, "tok-") || f.revoked[token] {
		return "", false
	}
	return strings.TrimPrefix(token, "tok-"), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Handler serves the subset of the backend API the client uses.
func (f *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	unauthorized := func(w http.ResponseWriter) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	}

	mux.HandleFunc("POST /api/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("password") != "pw" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-" + r.PostForm.Get("username"), "token_type": "bearer"})
	})
	mux.HandleFunc("POST /api/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "User created successfully"})
	})
	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		u, ok := f.user(r)
		if !ok {
			unauthorized(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"username": u, "id": 7})
	})
	mux.HandleFunc("GET /api/chats", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		u, ok := f.user(r)
		if !ok {
			unauthorized(w)
			return
		}
		list := f.chats[u]
		if list == nil {
			list = []api.ChatSummary{}
		}
		writeJSON(w, http.StatusOK, list)
	})
	mux.HandleFunc("GET /api/chats/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.user(r); !ok {
			unauthorized(w)
			return
		}
		d, ok := f.details[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Chat not found"})
			return
		}
		writeJSON(w, http.StatusOK, d)
	})
	mux.HandleFunc("DELETE /api/chats/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		u, ok := f.user(r)
		if !ok {
			unauthorized(w)
			return
		}
		id := r.PathValue("id")
		kept := f.chats[u][:0:0]
		for _, c := range f.chats[u] {
			if c.ChatID != id {
				kept = append(kept, c)
			}
		}
		f.chats[u] = kept
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	mux.HandleFunc("POST /api/upload", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		u, ok := f.user(r)
		if !ok {
			unauthorized(w)
			return
		}
		if r.URL.Query().Get("api_key") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "API Key is required"})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		file.Close()
		f.nextID++
		id := "new" + string(rune('0'+f.nextID))
		data := &api.ProcessedData{FileName: header.Filename, Tables: []api.Table{{Page: 1, Cells: [][]string{{"x"}}}}}
		f.chats[u] = append([]api.ChatSummary{{ChatID: id, Title: header.Filename, CreatedAt: time.Now()}}, f.chats[u]...)
		f.details[id] = &api.ChatDetail{ChatID: id, ProcessedData: data}
		writeJSON(w, http.StatusOK, api.UploadResult{ChatID: id, FileName: header.Filename, ProcessedData: data})
	})
	mux.HandleFunc("POST /api/query", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.user(r); !ok {
			unauthorized(w)
			return
		}
		var in api.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, api.QueryResult{Answer: "Answer to " + in.Query, Reasoning: "looked at page 1"})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// Revoke makes the server reject token
func (f *Server) Revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[token] = true
}

// Start serves f until the test ends and returns a config pointing at it
func (f *Server) Start(t testing.TB) *config.Config {
	t.Helper()
	var h http.Handler = f.Handler()
	if f.Wrap != nil {
		h = f.Wrap(h)
	}
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	return &config.Config{
		Server:  config.Server{URL: ts.URL, Retries: 1},
		Data:    config.Data{Directory: dir},
		Session: config.SessionConfig{File: filepath.Join(dir, "session.toml")},
		Cache:   config.Cache{Enabled: false},
		Models:  config.DefaultModels,
		Model:   config.DefaultModel,
		Upload: config.Upload{
			ProgressInterval: 5 * time.Millisecond,
			ProgressStep:     10,
			ProgressCeiling:  90,
			CompletionDelay:  time.Millisecond,
		},
		Toast: config.Toast{Duration: time.Minute},
		TUI:   config.TUI{Theme: "default", StartDir: dir},
	}
}
