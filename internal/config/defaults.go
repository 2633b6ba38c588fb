package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	defaultConfigPath         = "~/.config/ucmusic/config.toml"
	defaultMusicDir           = "Music"
	defaultPollIntervalMillis = 1000
	defaultCatalogBaseURL     = "http://music.163.com"
	defaultCatalogTimeout     = 10
	defaultCatalogUserAgent   = "ucmusic/0.1.0"
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir(),
			MusicDir: defaultMusicDir,
		},
		Watcher: Watcher{
			PollIntervalMillis: defaultPollIntervalMillis,
		},
		Catalog: Catalog{
			BaseURL:        defaultCatalogBaseURL,
			TimeoutSeconds: defaultCatalogTimeout,
			UserAgent:      defaultCatalogUserAgent,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// defaultCacheDir returns the player's cache location for the running platform.
func defaultCacheDir() string {
	if runtime.GOOS == "windows" {
		if base, ok := os.LookupEnv("LOCALAPPDATA"); ok && strings.TrimSpace(base) != "" {
			return filepath.Join(base, "NetEase", "CloudMusic", "Cache", "Cache")
		}
		return `~\AppData\Local\NetEase\CloudMusic\Cache\Cache`
	}
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "netease-cloud-music", "Cache")
	}
	return "~/.cache/netease-cloud-music/Cache"
}
