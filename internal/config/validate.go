package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTimings(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		return errors.New("paths.cache_dir must be set")
	}
	if strings.TrimSpace(c.Paths.MusicDir) == "" {
		return errors.New("paths.music_dir must be set")
	}
	if c.Paths.CacheDir == c.Paths.MusicDir {
		return errors.New("paths.music_dir must differ from paths.cache_dir")
	}
	return nil
}

func (c *Config) validateTimings() error {
	return ensurePositiveMap(map[string]int{
		"watcher.poll_interval_ms":      c.Watcher.PollIntervalMillis,
		"catalog.timeout_seconds":       c.Catalog.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateCatalog() error {
	parsed, err := url.Parse(c.Catalog.BaseURL)
	if err != nil {
		return fmt.Errorf("catalog.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("catalog.base_url must use http or https, got %q", c.Catalog.BaseURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
