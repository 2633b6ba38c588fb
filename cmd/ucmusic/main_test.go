package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ucmusic/internal/config"
	"ucmusic/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	catalog    *testsupport.CatalogServer
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("UCMUSIC_CACHE_DIR", "")
	t.Setenv("UCMUSIC_NTFY_TOPIC", "")
	server := testsupport.NewCatalogServer(t, map[string]testsupport.CatalogTrack{
		"42": {Title: "Song", Artists: []string{"Band"}, Album: "Record"},
	})
	cfg := testsupport.NewConfig(t, testsupport.WithCatalogURL(server.URL))
	if err := os.MkdirAll(cfg.Paths.CacheDir, 0o755); err != nil {
		t.Fatalf("mkdir cache: %v", err)
	}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "ucmusic.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, catalog: server}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()

	content := fmt.Sprintf(`[paths]
cache_dir = %q
music_dir = %q

[watcher]
poll_interval_ms = %d

[catalog]
base_url = %q
timeout_seconds = %d

[logging]
level = "error"
`, cfg.Paths.CacheDir, cfg.Paths.MusicDir, cfg.Watcher.PollIntervalMillis, cfg.Catalog.BaseURL, cfg.Catalog.TimeoutSeconds)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "ucmusic.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[paths]") {
		t.Fatalf("sample config missing [paths]: %s", data)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateReportsPaths(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, "--config", env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Music directory: "+env.cfg.Paths.MusicDir)
	requireContains(t, out, "Configuration valid")
}

func TestConvertHistoryAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	name := testsupport.WriteCacheEntry(t, env.cfg.Paths.CacheDir, "42", testsupport.MP3Payload())
	source := filepath.Join(env.cfg.Paths.CacheDir, name)

	out, err := runCLI(t, "--config", env.configPath, "convert", source)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := filepath.Join(env.cfg.Paths.MusicDir, "Song - Band.mp3")
	requireContains(t, out, "Converted "+name+" -> "+want)
	requireContains(t, out, "Enriched: yes")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected %s: %v", want, err)
	}

	out, err = runCLI(t, "--config", env.configPath, "convert", source)
	if err != nil {
		t.Fatalf("second convert: %v", err)
	}
	requireContains(t, out, "already in history")
	requireContains(t, out, "Conversions of "+name+" (1):")
	requireContains(t, out, "Song - Band.mp3")

	out, err = runCLI(t, "--config", env.configPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, name)
	requireContains(t, out, "1 entries")

	out, err = runCLI(t, "--config", env.configPath, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Song")
	requireContains(t, out, "Song - Band.mp3")
	requireContains(t, out, "1 conversions recorded, 1 enriched")
}

func TestConvertForceWritesSecondCopy(t *testing.T) {
	env := setupCLITestEnv(t)
	name := testsupport.WriteCacheEntry(t, env.cfg.Paths.CacheDir, "42", testsupport.MP3Payload())
	source := filepath.Join(env.cfg.Paths.CacheDir, name)

	if _, err := runCLI(t, "--config", env.configPath, "convert", source); err != nil {
		t.Fatalf("convert: %v", err)
	}
	out, err := runCLI(t, "--config", env.configPath, "convert", "--force", source)
	if err != nil {
		t.Fatalf("convert --force: %v", err)
	}
	requireContains(t, out, "Song - Band (2).mp3")
	requireContains(t, out, "Conversions of "+name+" (2):")
	requireContains(t, out, "Song - Band.mp3")
}

func TestConvertRejectsIncompleteEntry(t *testing.T) {
	env := setupCLITestEnv(t)
	name := testsupport.WriteCacheEntryNamed(t, env.cfg.Paths.CacheDir,
		"42-00000000000000000000000000000000.uc", testsupport.MP3Payload())

	_, err := runCLI(t, "--config", env.configPath, "convert", filepath.Join(env.cfg.Paths.CacheDir, name))
	if err == nil || !strings.Contains(err.Error(), "incomplete") {
		t.Fatalf("expected incomplete error, got %v", err)
	}
}

func TestHistoryAndListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, "--config", env.configPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "History is empty")

	out, err = runCLI(t, "--config", env.configPath, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No conversions recorded")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, "--config", env.configPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}
