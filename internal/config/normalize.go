package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatcher()
	c.normalizeCatalog()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("UCMUSIC_CACHE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.CacheDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if strings.TrimSpace(c.Paths.MusicDir) == "" {
		c.Paths.MusicDir = defaultMusicDir
	}
	var err error
	if c.Paths.CacheDir, err = expandPath(strings.TrimSpace(c.Paths.CacheDir)); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.MusicDir, err = expandPath(strings.TrimSpace(c.Paths.MusicDir)); err != nil {
		return fmt.Errorf("paths.music_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatcher() {
	if c.Watcher.PollIntervalMillis == 0 {
		c.Watcher.PollIntervalMillis = defaultPollIntervalMillis
	}
}

func (c *Config) normalizeCatalog() {
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	if c.Catalog.TimeoutSeconds == 0 {
		c.Catalog.TimeoutSeconds = defaultCatalogTimeout
	}
	c.Catalog.UserAgent = strings.TrimSpace(c.Catalog.UserAgent)
	if c.Catalog.UserAgent == "" {
		c.Catalog.UserAgent = defaultCatalogUserAgent
	}
}

func (c *Config) normalizeNotifications() {
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("UCMUSIC_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
