package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// WebDAV contains connection settings for the remote folder store.
type WebDAV struct {
	URL            string `toml:"url"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	Root           string `toml:"root"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Recognizer contains connection settings for the image recognition service.
type Recognizer struct {
	URL             string `toml:"url"`
	APIKey          string `toml:"api_key"`
	CallbackBaseURL string `toml:"callback_base_url"`
	RequestTimeout  int    `toml:"request_timeout"`
}

// Sync contains timing and retention settings for folder synchronization.
type Sync struct {
	PollInterval  int `toml:"poll_interval"`
	RetentionDays int `toml:"retention_days"`
}

// Sessions contains settings for session tracking and live progress delivery.
type Sessions struct {
	CacheTTL       int `toml:"cache_ttl"`
	CacheFreshness int `toml:"cache_freshness"`
	ChannelTimeout int `toml:"channel_timeout"`
	CloseGrace     int `toml:"close_grace"`
	MaxAgeHours    int `toml:"max_age_hours"`
	HistoryLimit   int `toml:"history_limit"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	SyncFailures   bool   `toml:"sync_failures"`
	Sessions       bool   `toml:"sessions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Longbox.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - WebDAV: remote comic folder store connection
//   - Recognizer: external image recognition service connection
//   - Sync: scheduled sync pass interval and record retention
//   - Sessions: progress cache lifetimes and live channel timing
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	WebDAV        WebDAV        `toml:"webdav"`
	Recognizer    Recognizer    `toml:"recognizer"`
	Sync          Sync          `toml:"sync"`
	Sessions      Sessions      `toml:"sessions"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/longbox/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("longbox.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "longbox.db")
}

// LockFilePath returns the location of the daemon instance lock file.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.DataDir, "longboxd.lock")
}

// WebDAVTimeout returns the remote folder request timeout as a duration.
func (c *Config) WebDAVTimeout() time.Duration {
	return time.Duration(c.WebDAV.RequestTimeout) * time.Second
}

// RecognizerTimeout returns the recognition service request timeout as a duration.
func (c *Config) RecognizerTimeout() time.Duration {
	return time.Duration(c.Recognizer.RequestTimeout) * time.Second
}

// CacheFreshness returns the window within which a cached progress entry is
// considered authoritative.
func (c *Config) CacheFreshness() time.Duration {
	return time.Duration(c.Sessions.CacheFreshness) * time.Second
}

// CacheTTL returns the lifetime of durable progress cache entries.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Sessions.CacheTTL) * time.Second
}

// ChannelTimeout returns the maximum lifetime of a live update channel.
func (c *Config) ChannelTimeout() time.Duration {
	return time.Duration(c.Sessions.ChannelTimeout) * time.Second
}

// CloseGrace returns the delay between a terminal session event and channel closure.
func (c *Config) CloseGrace() time.Duration {
	return time.Duration(c.Sessions.CloseGrace) * time.Second
}

// MaxSessionAge returns the watchdog limit for sessions stuck in processing.
// Zero disables the watchdog.
func (c *Config) MaxSessionAge() time.Duration {
	return time.Duration(c.Sessions.MaxAgeHours) * time.Hour
}

// RetentionHorizon returns the age beyond which processed-file records are pruned.
func (c *Config) RetentionHorizon() time.Duration {
	return time.Duration(c.Sync.RetentionDays) * 24 * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
