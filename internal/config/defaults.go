package config

const (
	defaultDataDir                = "~/.local/share/longbox"
	defaultLogDir                 = "~/.local/share/longbox/logs"
	defaultAPIBind                = "127.0.0.1:7491"
	defaultWebDAVRoot             = "/Comics"
	defaultWebDAVRequestTimeout   = 30
	defaultRecognizerTimeout      = 60
	defaultSyncPollInterval       = 300
	defaultSyncRetentionDays      = 90
	defaultSessionCacheTTL        = 900
	defaultSessionCacheFreshness  = 300
	defaultSessionChannelTimeout  = 3600
	defaultSessionCloseGrace      = 2
	defaultSessionMaxAgeHours     = 24
	defaultSessionHistoryLimit    = 20
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		WebDAV: WebDAV{
			Root:           defaultWebDAVRoot,
			RequestTimeout: defaultWebDAVRequestTimeout,
		},
		Recognizer: Recognizer{
			RequestTimeout: defaultRecognizerTimeout,
		},
		Sync: Sync{
			PollInterval:  defaultSyncPollInterval,
			RetentionDays: defaultSyncRetentionDays,
		},
		Sessions: Sessions{
			CacheTTL:       defaultSessionCacheTTL,
			CacheFreshness: defaultSessionCacheFreshness,
			ChannelTimeout: defaultSessionChannelTimeout,
			CloseGrace:     defaultSessionCloseGrace,
			MaxAgeHours:    defaultSessionMaxAgeHours,
			HistoryLimit:   defaultSessionHistoryLimit,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			SyncFailures:   true,
			Sessions:       true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
