// Package watcher polls the player's cache directory and converts each new
// cache entry exactly once.
//
// A Watcher owns its history set, logger and collaborators. Run alternates
// Cycle with an injected Sleeper until the context is cancelled; cancellation
// is observed between files and between cycles, never mid-file.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"ucmusic/internal/enrich"
	"ucmusic/internal/history"
	"ucmusic/internal/ledger"
	"ucmusic/internal/logging"
	"ucmusic/internal/notifications"
	"ucmusic/internal/ucfile"
)

// Enricher decorates a converted file with catalog metadata.
type Enricher interface {
	Enrich(ctx context.Context, path string) (enrich.Result, error)
}

// Recorder persists conversion outcomes for reporting.
type Recorder interface {
	Add(ctx context.Context, rec ledger.Record) (int64, error)
}

// Options wires a Watcher. CacheDir, MusicDir, History and Enricher are required.
type Options struct {
	CacheDir string
	MusicDir string
	Interval time.Duration
	RunID    string

	History  *history.Store
	Enricher Enricher
	Ledger   Recorder
	Notifier notifications.Service
	Sleeper  Sleeper
	Logger   *slog.Logger
}

// Watcher is the single-threaded polling loop.
type Watcher struct {
	cacheDir string
	musicDir string
	interval time.Duration
	runID    string

	history  *history.Store
	enricher Enricher
	ledger   Recorder
	notifier notifications.Service
	sleeper  Sleeper
	logger   *slog.Logger

	// invalid remembers malformed names so they are reported once per run.
	invalid map[string]struct{}
}

// CycleStats summarizes one pass over the cache directory.
type CycleStats struct {
	Listed     int
	Converted  int
	Skipped    int
	Incomplete int
	Failed     int
}

// New validates opts and returns a Watcher.
func New(opts Options) (*Watcher, error) {
	if strings.TrimSpace(opts.CacheDir) == "" {
		return nil, errors.New("watcher: cache dir required")
	}
	if strings.TrimSpace(opts.MusicDir) == "" {
		return nil, errors.New("watcher: music dir required")
	}
	if opts.History == nil {
		return nil, errors.New("watcher: history store required")
	}
	if opts.Enricher == nil {
		return nil, errors.New("watcher: enricher required")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.NewService(nil)
	}
	if opts.Sleeper == nil {
		opts.Sleeper = ClockSleeper{}
	}
	return &Watcher{
		cacheDir: opts.CacheDir,
		musicDir: opts.MusicDir,
		interval: opts.Interval,
		runID:    opts.RunID,
		history:  opts.History,
		enricher: opts.Enricher,
		ledger:   opts.Ledger,
		notifier: opts.Notifier,
		sleeper:  opts.Sleeper,
		logger:   logging.NewComponentLogger(opts.Logger, "watcher"),
		invalid:  make(map[string]struct{}),
	}, nil
}

// Run polls until ctx is cancelled and then returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching cache directory",
		logging.String("cache_dir", w.cacheDir),
		logging.String("music_dir", w.musicDir),
		logging.Duration("interval", w.interval),
		logging.Int("history_entries", w.history.Len()),
		logging.String(logging.FieldEventType, "watcher_started"),
	)
	for {
		if ctx.Err() != nil {
			break
		}
		stats, err := w.Cycle(ctx)
		if err == nil && stats.Converted+stats.Failed > 0 {
			w.logger.Info("cycle complete",
				logging.Int("converted", stats.Converted),
				logging.Int("failed", stats.Failed),
				logging.Int("incomplete", stats.Incomplete),
			)
		}
		if ctx.Err() != nil {
			break
		}
		if err := w.sleeper.Sleep(ctx, w.interval); err != nil {
			break
		}
	}
	w.logger.Info("watcher stopped", logging.String(logging.FieldEventType, "watcher_stopped"))
	return nil
}

// Cycle lists the cache directory once and processes every pending entry in
// name order. Per-file failures are logged and counted; only a listing error
// is returned.
func (w *Watcher) Cycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats
	names, err := w.listEntries()
	if err != nil {
		logging.WarnWithContext(w.logger, "cache directory listing failed", "cache_list_failed",
			logging.String("cache_dir", w.cacheDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the player cache directory exists"),
			logging.String(logging.FieldImpact, "no files converted this cycle"),
		)
		return stats, err
	}
	stats.Listed = len(names)

	start := time.Now()
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		result, err := w.process(ctx, w.cacheDir, name, false)
		if err != nil {
			stats.Failed++
			continue
		}
		switch result.Outcome {
		case OutcomeConverted:
			stats.Converted++
		case OutcomeIncomplete:
			stats.Incomplete++
		default:
			stats.Skipped++
		}
	}
	if stats.Converted > 1 || stats.Failed > 0 {
		if err := w.notifier.NotifyCycleSummary(ctx, stats.Converted, stats.Failed, time.Since(start)); err != nil {
			w.logger.Debug("cycle summary notification failed", logging.Error(err))
		}
	}
	return stats, nil
}

func (w *Watcher) listEntries() ([]string, error) {
	entries, err := os.ReadDir(w.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !ucfile.IsCacheEntry(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
