// Package enrich resolves a converted file's track id against the catalog,
// writes tags and cover art, and renames the file to "{title} - {artists}".
//
// Enrichment degrades step by step: a failed lookup leaves the file untouched
// under its raw id-digest name, a tag or cover failure is logged and skipped,
// and the rename still happens whenever the lookup succeeded.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ucmusic/internal/catalog"
	"ucmusic/internal/fileutil"
	"ucmusic/internal/logging"
	"ucmusic/internal/tagging"
	"ucmusic/internal/textutil"
)

// Result reports which enrichment steps took effect.
type Result struct {
	LookedUp      bool
	Tagged        bool
	CoverEmbedded bool
	Renamed       bool
	FinalPath     string
	Track         *catalog.Track
}

// Enricher decorates converted files with catalog metadata.
type Enricher struct {
	lookup    catalog.Lookup
	logger    *slog.Logger
	writerFor func(tagging.Kind) tagging.Writer
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithWriterFactory overrides how tag writers are selected per container kind.
func WithWriterFactory(factory func(tagging.Kind) tagging.Writer) Option {
	return func(e *Enricher) {
		if factory != nil {
			e.writerFor = factory
		}
	}
}

// New constructs an Enricher backed by lookup.
func New(lookup catalog.Lookup, logger *slog.Logger, opts ...Option) *Enricher {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Enricher{
		lookup:    lookup,
		logger:    logging.NewComponentLogger(logger, "enrich"),
		writerFor: tagging.WriterFor,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TrackID returns the substring before the first "-" of the base name.
func TrackID(path string) string {
	base := filepath.Base(path)
	id, _, found := strings.Cut(base, "-")
	if !found {
		return ""
	}
	return id
}

// Enrich runs lookup, tagging, cover embedding and rename for path. Network
// and missing-data conditions never produce an error; the returned error is
// reserved for an unusable path.
func (e *Enricher) Enrich(ctx context.Context, path string) (Result, error) {
	result := Result{FinalPath: path}
	if _, err := os.Stat(path); err != nil {
		return result, fmt.Errorf("stat %s: %w", path, err)
	}

	id := TrackID(path)
	logger := e.logger.With(logging.String(logging.FieldTrackID, id))
	if id == "" {
		logging.WarnWithContext(logger, "track id missing from file name; enrichment skipped", "enrich_no_id",
			logging.String("path", path),
			logging.String(logging.FieldImpact, "file keeps its raw name"),
		)
		return result, nil
	}

	track, err := e.lookup.SongDetail(ctx, id)
	if err != nil {
		logging.WarnWithContext(logger, "catalog lookup failed; enrichment skipped", "catalog_lookup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access to the catalog API"),
			logging.String(logging.FieldImpact, "file stays untagged under its raw name"),
		)
		return result, nil
	}
	result.LookedUp = true
	result.Track = track

	ext := filepath.Ext(path)
	kind := tagging.KindForPath(path)
	writer := e.writerFor(kind)
	if kind == tagging.KindUnsupported {
		logging.WarnWithContext(logger, "unsupported container; tags skipped", "tagging_unsupported",
			logging.String("extension", ext),
			logging.String(logging.FieldImpact, "file renamed without tags"),
		)
	} else {
		result.Tagged = e.writeTags(logger, writer, path, track)
		result.CoverEmbedded = e.embedCover(ctx, logger, writer, path, track)
	}

	final, err := e.rename(path, track, ext)
	if err != nil {
		logging.WarnWithContext(logger, "rename failed; file keeps raw name", "rename_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the music directory"),
		)
		return result, nil
	}
	if final != path {
		result.Renamed = true
		result.FinalPath = final
	}
	return result, nil
}

func (e *Enricher) writeTags(logger *slog.Logger, writer tagging.Writer, path string, track *catalog.Track) bool {
	tags := tagging.Tags{
		Title:  track.Title,
		Artist: track.JoinedArtists(),
		Album:  track.Album,
	}
	if err := writer.WriteTags(path, tags); err != nil {
		logging.WarnWithContext(logger, "tag write failed", "tag_write_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file has no title/artist/album tags"),
		)
		return false
	}
	logger.Debug("tags written", logging.String("path", path))
	return true
}

// embedCover fetches and embeds the album art. Failures are debug-only.
func (e *Enricher) embedCover(ctx context.Context, logger *slog.Logger, writer tagging.Writer, path string, track *catalog.Track) bool {
	if track.CoverURL == "" {
		return false
	}
	data, err := e.lookup.FetchCover(ctx, track.CoverURL)
	if err != nil {
		logger.Debug("cover fetch skipped", logging.String("url", track.CoverURL), logging.Error(err))
		return false
	}
	if err := writer.WriteCover(path, data); err != nil {
		if !errors.Is(err, tagging.ErrUnsupported) {
			logger.Debug("cover embed skipped", logging.String("path", path), logging.Error(err))
		}
		return false
	}
	return true
}

func (e *Enricher) rename(path string, track *catalog.Track, ext string) (string, error) {
	name := textutil.TrackFileName(track.Title, track.JoinedArtists(), ext)
	if name == "" {
		return path, errors.New("catalog returned no title or artists")
	}
	target := filepath.Join(filepath.Dir(path), name)
	if target == path {
		return path, nil
	}
	target, err := fileutil.UniquePath(target)
	if err != nil {
		return path, err
	}
	if err := os.Rename(path, target); err != nil {
		return path, err
	}
	return target, nil
}
