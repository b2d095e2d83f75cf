package config

import "strings"

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.DataDir, &c.Paths.LogDir} {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.WebDAV.URL = strings.TrimRight(strings.TrimSpace(c.WebDAV.URL), "/")
	c.WebDAV.Username = strings.TrimSpace(c.WebDAV.Username)
	c.WebDAV.Root = normalizeRemotePath(c.WebDAV.Root)
	c.Recognizer.URL = strings.TrimRight(strings.TrimSpace(c.Recognizer.URL), "/")
	c.Recognizer.CallbackBaseURL = strings.TrimRight(strings.TrimSpace(c.Recognizer.CallbackBaseURL), "/")
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.WebDAV.RequestTimeout <= 0 {
		c.WebDAV.RequestTimeout = defaultWebDAVRequestTimeout
	}
	if c.Recognizer.RequestTimeout <= 0 {
		c.Recognizer.RequestTimeout = defaultRecognizerTimeout
	}
	if c.Sessions.CacheTTL <= 0 {
		c.Sessions.CacheTTL = defaultSessionCacheTTL
	}
	if c.Sessions.CacheFreshness <= 0 {
		c.Sessions.CacheFreshness = defaultSessionCacheFreshness
	}
	if c.Sessions.ChannelTimeout <= 0 {
		c.Sessions.ChannelTimeout = defaultSessionChannelTimeout
	}
	if c.Sessions.CloseGrace <= 0 {
		c.Sessions.CloseGrace = defaultSessionCloseGrace
	}
	if c.Sessions.HistoryLimit <= 0 {
		c.Sessions.HistoryLimit = defaultSessionHistoryLimit
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	return nil
}

// normalizeRemotePath forces a leading slash and strips a trailing one so
// remote folder paths compare consistently.
func normalizeRemotePath(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "/"
	}
	trimmed = "/" + strings.Trim(trimmed, "/")
	return trimmed
}

// NormalizeRemotePath exposes remote path normalization for other packages.
func NormalizeRemotePath(value string) string {
	return normalizeRemotePath(value)
}
