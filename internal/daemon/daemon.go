package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"ucmusic/internal/catalog"
	"ucmusic/internal/config"
	"ucmusic/internal/enrich"
	"ucmusic/internal/history"
	"ucmusic/internal/ledger"
	"ucmusic/internal/logging"
	"ucmusic/internal/notifications"
	"ucmusic/internal/watcher"
)

// ErrAlreadyRunning reports that another process holds the instance lock.
var ErrAlreadyRunning = errors.New("another ucmusic instance is already using this music directory")

// Daemon wires the watcher and its collaborators into one lifecycle and
// enforces single-instance execution per music directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	runID    string
	history  *history.Store
	ledger   *ledger.Store
	notifier notifications.Service
	watcher  *watcher.Watcher

	lockPath string
	lock     *flock.Flock
	running  atomic.Bool
}

// Option customizes daemon construction.
type Option func(*options)

type options struct {
	sleeper watcher.Sleeper
	runID   string
}

// WithSleeper replaces the wall-clock sleeper between polling cycles.
func WithSleeper(s watcher.Sleeper) Option {
	return func(o *options) { o.sleeper = s }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = strings.TrimSpace(id) }
}

// New constructs a daemon: it prepares the music directory, loads history,
// opens the ledger and builds the watcher.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldRunID, o.runID))

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	hist := history.Open(cfg.HistoryPath())
	if err := hist.Load(); err != nil {
		return nil, err
	}

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	client, err := catalog.New(cfg.Catalog.BaseURL,
		catalog.WithTimeout(cfg.CatalogTimeout()),
		catalog.WithUserAgent(cfg.Catalog.UserAgent),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("catalog client: %w", err)
	}

	notifier := notifications.NewService(cfg)
	w, err := watcher.New(watcher.Options{
		CacheDir: cfg.Paths.CacheDir,
		MusicDir: cfg.Paths.MusicDir,
		Interval: cfg.PollInterval(),
		RunID:    o.runID,
		History:  hist,
		Enricher: enrich.New(client, logger),
		Ledger:   store,
		Notifier: notifier,
		Sleeper:  o.sleeper,
		Logger:   logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		runID:    o.runID,
		history:  hist,
		ledger:   store,
		notifier: notifier,
		watcher:  w,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// RunID returns the identifier attached to every log record of this run.
func (d *Daemon) RunID() string { return d.runID }

// History exposes the processed-entry set.
func (d *Daemon) History() *history.Store { return d.history }

// Ledger exposes the conversion ledger.
func (d *Daemon) Ledger() *ledger.Store { return d.ledger }

// LockPath returns the instance lock file location.
func (d *Daemon) LockPath() string { return d.lockPath }

func (d *Daemon) acquire() error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	d.running.Store(true)
	return nil
}

func (d *Daemon) release() {
	if !d.running.Load() {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release instance lock", logging.Error(err))
	}
	d.running.Store(false)
}

// Run holds the instance lock and polls until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.acquire(); err != nil {
		return err
	}
	defer d.release()

	d.logger.Info("ucmusic started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	err := d.watcher.Run(ctx)
	d.logger.Info("ucmusic stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return err
}

// Convert processes a single cache entry under the instance lock. force
// bypasses the history check.
func (d *Daemon) Convert(ctx context.Context, path string, force bool) (watcher.FileResult, error) {
	if err := d.acquire(); err != nil {
		return watcher.FileResult{}, err
	}
	defer d.release()

	if force {
		return d.watcher.Reconvert(ctx, path)
	}
	return d.watcher.ProcessFile(ctx, path)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send test notification", err
	}
	return true, "test notification sent", nil
}

// Close releases the lock and the ledger.
func (d *Daemon) Close() error {
	d.release()
	if d.ledger != nil {
		return d.ledger.Close()
	}
	return nil
}
