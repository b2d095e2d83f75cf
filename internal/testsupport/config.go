package testsupport

import (
	"path/filepath"
	"testing"

	"longbox/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.WebDAV.URL = "http://webdav.test/dav"
	cfg.WebDAV.Username = "test"
	cfg.WebDAV.Password = "test"
	cfg.Recognizer.URL = "http://recognizer.test/api"
	cfg.Recognizer.APIKey = "test"
	cfg.Recognizer.CallbackBaseURL = "http://127.0.0.1:7491"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithWebDAVURL overrides the remote folder store URL on the test config.
func WithWebDAVURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.WebDAV.URL = url
	}
}

// WithRecognizerURL overrides the recognition service URL on the test config.
func WithRecognizerURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Recognizer.URL = url
	}
}

// WithSessionTiming tightens the live channel lifetime and close grace for
// tests that exercise channel expiry.
func WithSessionTiming(channelTimeout, closeGrace int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sessions.ChannelTimeout = channelTimeout
		cfg.Sessions.CloseGrace = closeGrace
	}
}
