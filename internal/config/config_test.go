package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ucmusic/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("UCMUSIC_CACHE_DIR", "")
	t.Setenv("UCMUSIC_NTFY_TOPIC", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if !filepath.IsAbs(cfg.Paths.MusicDir) || filepath.Base(cfg.Paths.MusicDir) != "Music" {
		t.Fatalf("unexpected music dir: %q", cfg.Paths.MusicDir)
	}
	if !filepath.IsAbs(cfg.Paths.CacheDir) {
		t.Fatalf("expected absolute cache dir, got %q", cfg.Paths.CacheDir)
	}
	if cfg.PollInterval() != time.Second {
		t.Fatalf("expected 1s poll interval, got %v", cfg.PollInterval())
	}
	if cfg.Catalog.BaseURL != "http://music.163.com" {
		t.Fatalf("unexpected catalog base url: %q", cfg.Catalog.BaseURL)
	}
	if cfg.Notifications.NtfyTopic != "" {
		t.Fatalf("expected notifications disabled by default, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.HistoryPath() != filepath.Join(cfg.Paths.MusicDir, "history.txt") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ucmusic.toml")

	type payload struct {
		Paths struct {
			CacheDir string `toml:"cache_dir"`
			MusicDir string `toml:"music_dir"`
		} `toml:"paths"`
		Watcher struct {
			PollIntervalMillis int `toml:"poll_interval_ms"`
		} `toml:"watcher"`
		Catalog struct {
			BaseURL string `toml:"base_url"`
		} `toml:"catalog"`
	}
	custom := payload{}
	custom.Paths.CacheDir = filepath.Join(tempDir, "cache")
	custom.Paths.MusicDir = filepath.Join(tempDir, "out")
	custom.Watcher.PollIntervalMillis = 250
	custom.Catalog.BaseURL = "https://catalog.example.com/"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}
	t.Setenv("UCMUSIC_CACHE_DIR", "")

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.CacheDir != custom.Paths.CacheDir {
		t.Fatalf("unexpected cache dir: %q", cfg.Paths.CacheDir)
	}
	if cfg.Paths.MusicDir != custom.Paths.MusicDir {
		t.Fatalf("unexpected music dir: %q", cfg.Paths.MusicDir)
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Fatalf("expected 250ms poll interval, got %v", cfg.PollInterval())
	}
	if cfg.Catalog.BaseURL != "https://catalog.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Catalog.BaseURL)
	}
}

func TestEnvVarOverridesCacheDir(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ucmusic.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\ncache_dir = \"/from/file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	envDir := filepath.Join(tempDir, "env-cache")
	t.Setenv("UCMUSIC_CACHE_DIR", envDir)
	t.Setenv("UCMUSIC_NTFY_TOPIC", "https://ntfy.example.com/music")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.CacheDir != envDir {
		t.Errorf("expected cache dir from env, got %q", cfg.Paths.CacheDir)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example.com/music" {
		t.Errorf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "poll_interval_ms") {
		t.Fatalf("sample config missing watcher section: %s", contents)
	}

	cfg := config.Default()
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Paths.MusicDir != "Music" {
		t.Fatalf("expected sample music dir Music, got %q", cfg.Paths.MusicDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Paths.CacheDir = "/tmp/cache"
		cfg.Paths.MusicDir = "/tmp/music"
		return cfg
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	cfg = base()
	cfg.Watcher.PollIntervalMillis = -5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive poll interval")
	}

	cfg = base()
	cfg.Paths.MusicDir = cfg.Paths.CacheDir
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when music dir equals cache dir")
	}

	cfg = base()
	cfg.Catalog.BaseURL = "ftp://music.example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http catalog url")
	}

	cfg = base()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}
