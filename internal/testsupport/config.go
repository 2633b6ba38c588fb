package testsupport

import (
	"path/filepath"
	"testing"

	"ucmusic/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.MusicDir = filepath.Join(base, "Music")
	cfgVal.Watcher.PollIntervalMillis = 10
	cfgVal.Catalog.TimeoutSeconds = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCatalogURL points the catalog client at a test server.
func WithCatalogURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.BaseURL = url
	}
}

// WithNtfyTopic enables notifications against the supplied topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.MusicDir)
}
