package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Chdir(t.TempDir())

	cfg, err := Load("", false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.URL != "http://localhost:8000" {
		t.Errorf("Server.URL = %q", cfg.Server.URL)
	}
	if cfg.Server.Timeout != 0 {
		t.Errorf("Server.Timeout = %v, want no deadline", cfg.Server.Timeout)
	}
	if cfg.Model != DefaultModel {
		t.Errorf("Model = %q", cfg.Model)
	}
	if len(cfg.Models) != 3 {
		t.Errorf("Models = %v", cfg.Models)
	}
	if cfg.Upload.ProgressInterval != 800*time.Millisecond {
		t.Errorf("ProgressInterval = %v", cfg.Upload.ProgressInterval)
	}
	if cfg.Upload.ProgressStep != 10 || cfg.Upload.ProgressCeiling != 90 {
		t.Errorf("progress step/ceiling = %d/%d", cfg.Upload.ProgressStep, cfg.Upload.ProgressCeiling)
	}
	if cfg.Upload.CompletionDelay != 500*time.Millisecond {
		t.Errorf("CompletionDelay = %v", cfg.Upload.CompletionDelay)
	}
	if cfg.Toast.Duration != 3*time.Second {
		t.Errorf("Toast.Duration = %v", cfg.Toast.Duration)
	}

	dataDir := filepath.Join(home, ".pdfretriever")
	if cfg.Data.Directory != dataDir {
		t.Errorf("Data.Directory = %q, want %q", cfg.Data.Directory, dataDir)
	}
	if cfg.Session.File != filepath.Join(dataDir, "session.toml") {
		t.Errorf("Session.File = %q", cfg.Session.File)
	}
	if cfg.Cache.Path != filepath.Join(dataDir, "cache.db") || !cfg.Cache.Enabled {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	path := filepath.Join(home, "custom.yaml")
	content := `
server:
  url: http://backend:9000/
  retries: 5
model: gemini-2.5-flash
upload:
  progressInterval: 50ms
toast:
  duration: 1s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PDFRETRIEVER_SERVER_TIMEOUT", "30s")

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"url trimmed", cfg.Server.URL, "http://backend:9000"},
		{"retries", cfg.Server.Retries, uint(5)},
		{"timeout from env", cfg.Server.Timeout, 30 * time.Second},
		{"model", cfg.Model, "gemini-2.5-flash"},
		{"interval", cfg.Upload.ProgressInterval, 50 * time.Millisecond},
		{"toast", cfg.Toast.Duration, time.Second},
		{"debug level", cfg.Log.Level, "debug"},
		{"debug flag", cfg.Debug, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PDFRETRIEVER_MODEL=gemini-flash-latest\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("PDFRETRIEVER_MODEL") })

	cfg, err := Load("", false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "gemini-flash-latest" {
		t.Errorf("Model = %q", cfg.Model)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("upload:\n  progressCeiling: 150\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, false); err == nil {
		t.Fatal("expected an error for an out of range ceiling")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}
