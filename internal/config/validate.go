package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWebDAV(); err != nil {
		return err
	}
	if err := c.validateRecognizer(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateSessions(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWebDAV() error {
	if c.WebDAV.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/longbox/config.toml"
		}
		return fmt.Errorf("webdav.url is required. Edit %s (create with 'longbox config init')", defaultPath)
	}
	if !strings.HasPrefix(c.WebDAV.URL, "http://") && !strings.HasPrefix(c.WebDAV.URL, "https://") {
		return errors.New("webdav.url must be an http or https URL")
	}
	return nil
}

func (c *Config) validateRecognizer() error {
	if c.Recognizer.URL == "" {
		return errors.New("recognizer.url must be set")
	}
	if !strings.HasPrefix(c.Recognizer.URL, "http://") && !strings.HasPrefix(c.Recognizer.URL, "https://") {
		return errors.New("recognizer.url must be an http or https URL")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.PollInterval < 0 {
		return errors.New("sync.poll_interval must not be negative")
	}
	if c.Sync.RetentionDays <= 0 {
		return errors.New("sync.retention_days must be positive")
	}
	return nil
}

func (c *Config) validateSessions() error {
	if c.Sessions.CacheFreshness > c.Sessions.CacheTTL {
		return errors.New("sessions.cache_freshness must not exceed sessions.cache_ttl")
	}
	if c.Sessions.MaxAgeHours < 0 {
		return errors.New("sessions.max_age_hours must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
