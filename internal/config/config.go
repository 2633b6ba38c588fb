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

// Paths contains the monitored cache directory and the output directory.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	MusicDir string `toml:"music_dir"`
}

// Watcher contains polling settings.
type Watcher struct {
	PollIntervalMillis int `toml:"poll_interval_ms"`
}

// Catalog contains settings for the remote track catalog API.
type Catalog struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   bool   `toml:"file"`
}

// Config encapsulates all configuration values for ucmusic.
//
// Configuration sections by subsystem:
//   - Paths: player cache directory and Music output directory
//   - Watcher: poll interval
//   - Catalog: song detail API endpoint and HTTP timeout
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and optional log file
type Config struct {
	Paths         Paths         `toml:"paths"`
	Watcher       Watcher       `toml:"watcher"`
	Catalog       Catalog       `toml:"catalog"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. The second and third results report the
// resolved config path and whether a file was actually read.
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ucmusic.toml")
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

// EnsureDirectories creates the Music output directory. The cache directory
// belongs to the player and is never created here.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.MusicDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.MusicDir, err)
	}
	return nil
}

// HistoryPath returns the location of the processed-file history.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.MusicDir, "history.txt")
}

// LedgerPath returns the location of the conversion ledger database.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.MusicDir, "ledger.db")
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.MusicDir, ".ucmusic.lock")
}

// LogPath returns the log file location used when logging.file is enabled.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.MusicDir, "ucmusic.log")
}

// PollInterval returns the watcher sleep between cycles.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watcher.PollIntervalMillis) * time.Millisecond
}

// CatalogTimeout returns the HTTP timeout for catalog and cover requests.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutSeconds) * time.Second
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
