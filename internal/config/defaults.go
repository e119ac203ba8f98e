package config

const (
	defaultStateDir        = "~/.local/share/shiori"
	defaultLogDir          = "~/.local/share/shiori/logs"
	defaultAPIBind         = "127.0.0.1:5015"
	defaultPollInterval    = 5
	defaultMinWatchSeconds = 60
	defaultFuzzyThreshold  = 0.85
	defaultFuzzyMargin     = 0.05
	defaultAutoComplete    = "score"
	defaultRemoteBaseURL   = "https://shikimori.one/api"
	defaultRatePerSecond   = 2.0
	defaultRemoteTimeout   = 15
	defaultRetryAttempts   = 3
	defaultRetryBackoff    = 2
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

var defaultProcessNames = []string{
	"mpv",
	"vlc",
	"mpc-hc64.exe",
	"PotPlayerMini64.exe",
	"PotPlayer64.exe",
}

var defaultVideoExtensions = []string{
	".mkv", ".mp4", ".avi", ".mov", ".webm", ".m4v", ".ts", ".m2ts",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Players: Players{
			ProcessNames:    append([]string(nil), defaultProcessNames...),
			PollInterval:    defaultPollInterval,
			MinWatchSeconds: defaultMinWatchSeconds,
			VideoExtensions: append([]string(nil), defaultVideoExtensions...),
		},
		Matching: Matching{
			FuzzyThreshold: defaultFuzzyThreshold,
			Margin:         defaultFuzzyMargin,
			IncludePlanned: true,
		},
		Scrobble: Scrobble{
			AutoComplete: defaultAutoComplete,
		},
		Remote: Remote{
			BaseURL:        defaultRemoteBaseURL,
			RatePerSecond:  defaultRatePerSecond,
			TimeoutSeconds: defaultRemoteTimeout,
			RetryAttempts:  defaultRetryAttempts,
			RetryBackoff:   defaultRetryBackoff,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Progress:       false,
			Completion:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
