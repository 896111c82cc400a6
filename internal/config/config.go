// Package config handles the XDG configuration directory, its file paths and
// the optional config.toml settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// AppName is the application directory name.
	AppName = "tasksync"

	// SettingsFile is the optional settings filename.
	SettingsFile = "config.toml"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// StateDir is the subdirectory holding the file mirror.
	StateDir = "state"

	// SQLiteFile is the mirror database filename.
	SQLiteFile = "mirror.db"

	// DefaultAPIURL is the API root used when none is configured.
	DefaultAPIURL = "http://localhost:5173/api"

	// DefaultTimeout bounds each remote request.
	DefaultTimeout = 5 * time.Second
)

// Backend names.
const (
	BackendREST   = "rest"
	BackendGoogle = "google"
)

// Store names.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Environment overrides.
const (
	EnvAPIURL  = "TASKSYNC_API_URL"
	EnvBackend = "TASKSYNC_BACKEND"
	EnvStore   = "TASKSYNC_STORE"
)

// ErrInvalid is wrapped by every settings validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Backend selects the remote: "rest" or "google".
	Backend string

	// APIURL is the REST API root.
	APIURL string

	// Store selects the mirror backend: "file", "sqlite" or "memory".
	Store string

	// Timeout bounds each remote request.
	Timeout time.Duration
}

// settings is the on-disk shape of config.toml.
type settings struct {
	Backend string `toml:"backend"`
	APIURL  string `toml:"api_url"`
	Store   string `toml:"store"`
	Timeout string `toml:"timeout"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/tasksync or $HOME/.config/tasksync.
// Settings come from config.toml when present, then the environment.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:     dir,
		Backend: BackendREST,
		APIURL:  DefaultAPIURL,
		Store:   StoreFile,
		Timeout: DefaultTimeout,
	}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (c *Config) load() error {
	var s settings
	_, err := toml.DecodeFile(c.SettingsPath(), &s)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, SettingsFile, err)
	}

	if s.Backend != "" {
		c.Backend = s.Backend
	}
	if s.APIURL != "" {
		c.APIURL = s.APIURL
	}
	if s.Store != "" {
		c.Store = s.Store
	}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return fmt.Errorf("%w: timeout: %v", ErrInvalid, err)
		}
		c.Timeout = d
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackend)); v != "" {
		c.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStore)); v != "" {
		c.Store = v
	}
}

// Validate checks the settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendREST, BackendGoogle:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}
	switch c.Store {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalid, c.Store)
	}
	if c.Backend == BackendREST {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: api_url %q", ErrInvalid, c.APIURL)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	return nil
}

// SettingsPath returns the path to config.toml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// StatePath returns the directory of the file mirror.
func (c *Config) StatePath() string {
	return filepath.Join(c.Dir, StateDir)
}

// SQLitePath returns the path to the mirror database.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Dir, SQLiteFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}
