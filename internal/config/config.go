// Package config loads the client configuration from file, environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	appName              = "pdfretriever"
	defaultDataDirectory = "~/.pdfretriever"
	defaultLogLevel      = "info"
	defaultServerURL     = "http://localhost:8000"
	DefaultModel         = "gemini-2.0-flash"
)

// DefaultModels are the selectable backend models
var DefaultModels = []string{
	"gemini-2.0-flash",
	"gemini-2.5-flash",
	"gemini-flash-latest",
}

// Server is the backend connection
type Server struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
	Retries uint          `json:"retries"`
}

// Data is the local storage location
type Data struct {
	Directory string `json:"directory"`
}

// SessionConfig locates the persisted session
type SessionConfig struct {
	File string `json:"file"`
}

// Cache configures the local chat detail cache
type Cache struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Upload tunes the upload progress indicator
type Upload struct {
	ProgressInterval time.Duration `json:"progressInterval"`
	ProgressStep     int           `json:"progressStep"`
	ProgressCeiling  int           `json:"progressCeiling"`
	CompletionDelay  time.Duration `json:"completionDelay"`
	MaxSize          int64         `json:"maxSize"`
}

// Toast configures notifications
type Toast struct {
	Duration time.Duration `json:"duration"`
}

// TUI configures the terminal interface
type TUI struct {
	Theme string `json:"theme"`
	// StartDir is where the upload file browser opens. Empty means the
	// working directory.
	StartDir string `json:"startDir"`
}

// Log configures logging output
type Log struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Config is the full client configuration
type Config struct {
	Server  Server        `json:"server"`
	Data    Data          `json:"data"`
	Session SessionConfig `json:"session"`
	Cache   Cache         `json:"cache"`
	Models  []string      `json:"models"`
	Model   string        `json:"model"`
	Upload  Upload        `json:"upload"`
	Toast   Toast         `json:"toast"`
	TUI     TUI           `json:"tui"`
	Log     Log           `json:"log"`
	Debug   bool          `json:"debug"`
}

// Load reads the configuration. An explicit path must exist; otherwise a
// missing config file is not an error.
func Load(path string, debug bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	configureViper(v, path)
	setDefaults(v, debug)

	cfg := &Config{}
	if err := readConfig(v, cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configureViper sets up viper's configuration paths and environment variables
func configureViper(v *viper.Viper, path string) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fmt.Sprintf(".%s", appName))
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
		v.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	}
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// setDefaults configures default values for configuration options
func setDefaults(v *viper.Viper, debug bool) {
	v.SetDefault("server.url", defaultServerURL)
	v.SetDefault("server.timeout", 0)
	v.SetDefault("server.retries", 3)
	v.SetDefault("data.directory", defaultDataDirectory)
	v.SetDefault("session.file", "")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "")
	v.SetDefault("models", DefaultModels)
	v.SetDefault("model", DefaultModel)

	v.SetDefault("upload.progressInterval", "800ms")
	v.SetDefault("upload.progressStep", 10)
	v.SetDefault("upload.progressCeiling", 90)
	v.SetDefault("upload.completionDelay", "500ms")
	v.SetDefault("upload.maxSize", 0)

	v.SetDefault("toast.duration", "3s")
	v.SetDefault("tui.theme", "default")
	v.SetDefault("tui.startDir", "")
	v.SetDefault("log.file", "")

	if debug {
		v.SetDefault("debug", true)
		v.Set("log.level", "debug")
	} else {
		v.SetDefault("debug", false)
		v.SetDefault("log.level", defaultLogLevel)
	}
}

// readConfig reads configuration from file and environment
func readConfig(v *viper.Viper, cfg *Config) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}
	return nil
}

func (c *Config) normalize() error {
	dir, err := expandHome(c.Data.Directory)
	if err != nil {
		return err
	}
	c.Data.Directory = dir

	if c.Session.File == "" {
		c.Session.File = filepath.Join(dir, "session.toml")
	} else if c.Session.File, err = expandHome(c.Session.File); err != nil {
		return err
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(dir, "cache.db")
	} else if c.Cache.Path, err = expandHome(c.Cache.Path); err != nil {
		return err
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(dir, appName+".log")
	} else if c.Log.File, err = expandHome(c.Log.File); err != nil {
		return err
	}

	if c.TUI.StartDir, err = expandHome(c.TUI.StartDir); err != nil {
		return err
	}

	c.Server.URL = strings.TrimRight(c.Server.URL, "/")
	if c.Server.URL == "" {
		return errors.New("server.url must not be empty")
	}
	if len(c.Models) == 0 {
		c.Models = append([]string(nil), DefaultModels...)
	}
	if c.Model == "" {
		c.Model = c.Models[0]
	}
	if c.Upload.ProgressInterval <= 0 {
		return fmt.Errorf("upload.progressInterval must be positive, got %s", c.Upload.ProgressInterval)
	}
	if c.Upload.ProgressCeiling < 0 || c.Upload.ProgressCeiling > 100 {
		return fmt.Errorf("upload.progressCeiling must be within 0-100, got %d", c.Upload.ProgressCeiling)
	}
	if c.Toast.Duration <= 0 {
		c.Toast.Duration = 3 * time.Second
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
