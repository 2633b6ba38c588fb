package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ucmusic/internal/enrich"
	"ucmusic/internal/fileutil"
	"ucmusic/internal/ledger"
	"ucmusic/internal/logging"
	"ucmusic/internal/sniff"
	"ucmusic/internal/ucfile"
)

// Outcome classifies what happened to one cache entry.
type Outcome int

const (
	// OutcomeConverted means the entry was decrypted, written and recorded.
	OutcomeConverted Outcome = iota
	// OutcomeAlreadyProcessed means history already held the entry.
	OutcomeAlreadyProcessed
	// OutcomeIncomplete means the digest did not match yet.
	OutcomeIncomplete
	// OutcomeInvalidName means the name is outside the cache grammar.
	OutcomeInvalidName
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConverted:
		return "converted"
	case OutcomeAlreadyProcessed:
		return "already processed"
	case OutcomeIncomplete:
		return "incomplete"
	case OutcomeInvalidName:
		return "invalid name"
	default:
		return "unknown"
	}
}

// FileResult describes the handling of one cache entry.
type FileResult struct {
	Source     string
	Outcome    Outcome
	Extension  string
	OutputPath string
	Enrich     enrich.Result
}

// ProcessFile runs the single-file pipeline on a cache entry path, honouring
// history. It is the one-shot form of what Cycle does per entry.
func (w *Watcher) ProcessFile(ctx context.Context, path string) (FileResult, error) {
	return w.processPath(ctx, path, false)
}

// Reconvert processes path even when history already lists it.
func (w *Watcher) Reconvert(ctx context.Context, path string) (FileResult, error) {
	return w.processPath(ctx, path, true)
}

func (w *Watcher) processPath(ctx context.Context, path string, force bool) (FileResult, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = w.cacheDir
	}
	return w.process(ctx, filepath.Clean(dir), name, force)
}

// process converts the entry name found in dir. Returned errors are per-file
// failures; they have already been logged.
func (w *Watcher) process(ctx context.Context, dir, name string, force bool) (FileResult, error) {
	// A started entry always runs to completion; cancellation is observed
	// between entries only.
	ctx = context.WithoutCancel(ctx)
	result := FileResult{Source: name}
	logger := w.logger.With(logging.String(logging.FieldSource, name))

	parsed, err := ucfile.ParseName(name)
	if err != nil {
		result.Outcome = OutcomeInvalidName
		if _, seen := w.invalid[name]; !seen {
			w.invalid[name] = struct{}{}
			logging.WarnWithContext(logger, "ignoring cache entry with unexpected name", "cache_name_invalid",
				logging.Error(err),
				logging.String(logging.FieldImpact, "file is not converted"),
			)
		}
		return result, nil
	}
	logger = logger.With(logging.String(logging.FieldTrackID, parsed.TrackID))

	if !force && w.history.Contains(name) {
		result.Outcome = OutcomeAlreadyProcessed
		return result, nil
	}

	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		logging.ErrorWithContext(logger, "read cache entry failed", "cache_read_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "file is retried next cycle"),
		)
		return result, fmt.Errorf("read %s: %w", name, err)
	}

	plain := ucfile.Decrypt(raw)
	if err := ucfile.Verify(plain, parsed); err != nil {
		if errors.Is(err, ucfile.ErrIncomplete) {
			result.Outcome = OutcomeIncomplete
			logger.Info("cache entry still downloading; retrying next cycle",
				logging.Int("bytes", len(plain)),
				logging.String(logging.FieldEventType, "cache_incomplete"),
			)
			return result, nil
		}
		return result, err
	}

	ext, known := sniff.Extension(plain)
	if !known {
		logging.WarnWithContext(logger, "unrecognized audio signature", "sniff_unknown",
			logging.String("extension", ext),
			logging.String(logging.FieldImpact, "file written without tags"),
		)
	}
	result.Extension = ext

	outPath := filepath.Join(w.musicDir, parsed.OutputName(ext))
	if err := fileutil.WriteFileAtomic(outPath, plain, 0o644); err != nil {
		logging.ErrorWithContext(logger, "write decrypted file failed", "output_write_failed",
			logging.String("path", outPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the music directory"),
		)
		return result, fmt.Errorf("write %s: %w", outPath, err)
	}
	result.OutputPath = outPath

	enriched, err := w.enricher.Enrich(ctx, outPath)
	if err != nil {
		logging.WarnWithContext(logger, "enrichment failed", "enrich_failed",
			logging.String("path", outPath),
			logging.Error(err),
		)
	}
	result.Enrich = enriched
	if enriched.FinalPath != "" {
		result.OutputPath = enriched.FinalPath
	}

	if err := w.history.Add(name); err != nil {
		logging.ErrorWithContext(logger, "history save failed", "history_save_failed",
			logging.String("history", w.history.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "entry will be converted again next cycle"),
		)
		_ = w.notifier.NotifyError(ctx, err, "history save")
		return result, fmt.Errorf("record %s: %w", name, err)
	}
	result.Outcome = OutcomeConverted

	w.record(ctx, logger, parsed, result)

	logger.Info("track converted",
		logging.String("output", result.OutputPath),
		logging.Bool("enriched", enriched.LookedUp),
		logging.String(logging.FieldEventType, "track_converted"),
	)
	title := filepath.Base(result.OutputPath)
	if enriched.Track != nil {
		title = enriched.Track.Title
	}
	if err := w.notifier.NotifyTrackConverted(ctx, title, filepath.Base(result.OutputPath)); err != nil {
		logger.Debug("track notification failed", logging.Error(err))
	}
	return result, nil
}

func (w *Watcher) record(ctx context.Context, logger *slog.Logger, parsed ucfile.Name, result FileResult) {
	if w.ledger == nil {
		return
	}
	rec := ledger.Record{
		SourceName: parsed.Raw,
		TrackID:    parsed.TrackID,
		Digest:     parsed.Digest,
		Extension:  result.Extension,
		OutputPath: result.OutputPath,
		Enriched:   result.Enrich.LookedUp,
		RunID:      w.runID,
	}
	if track := result.Enrich.Track; track != nil {
		rec.Title = track.Title
		rec.Artist = track.JoinedArtists()
		rec.Album = track.Album
	}
	if _, err := w.ledger.Add(ctx, rec); err != nil {
		logging.WarnWithContext(logger, "ledger record failed", "ledger_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "conversion succeeded; only reporting is affected"),
			logging.String(logging.FieldImpact, "list command misses this track"),
		)
	}
}
