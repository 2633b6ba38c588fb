package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Record is one conversion outcome.
type Record struct {
	ID          int64
	SourceName  string
	TrackID     string
	Digest      string
	Extension   string
	OutputPath  string
	Title       string
	Artist      string
	Album       string
	Enriched    bool
	RunID       string
	ConvertedAt time.Time
}

// timeLayout is fixed-width so converted_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const recordColumns = `id, source_name, track_id, digest, extension, output_path,
	title, artist, album, enriched, run_id, converted_at`

// Add inserts rec, stamping ConvertedAt when unset, and returns its row id.
func (s *Store) Add(ctx context.Context, rec Record) (int64, error) {
	ctx = ensureContext(ctx)
	if rec.ConvertedAt.IsZero() {
		rec.ConvertedAt = time.Now()
	}
	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `INSERT INTO conversions (
			source_name, track_id, digest, extension, output_path,
			title, artist, album, enriched, run_id, converted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.SourceName, rec.TrackID, rec.Digest, rec.Extension, rec.OutputPath,
			rec.Title, rec.Artist, rec.Album, boolToInt(rec.Enriched), rec.RunID,
			rec.ConvertedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert conversion: %w", err)
	}
	return id, nil
}

// Recent returns up to limit records, newest first. A limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + recordColumns + " FROM conversions ORDER BY converted_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query conversions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}
	return out, nil
}

// BySource returns the records for one cache entry, newest first.
func (s *Store) BySource(ctx context.Context, sourceName string) ([]Record, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM conversions WHERE source_name = ? ORDER BY id DESC", sourceName)
	if err != nil {
		return nil, fmt.Errorf("query conversions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}
	return out, nil
}

// Count returns the total and enriched record counts.
func (s *Store) Count(ctx context.Context) (total, enriched int, err error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(1), COALESCE(SUM(enriched), 0) FROM conversions")
	if err := row.Scan(&total, &enriched); err != nil {
		return 0, 0, fmt.Errorf("count conversions: %w", err)
	}
	return total, enriched, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec       Record
		enriched  int
		converted string
	)
	if err := rows.Scan(&rec.ID, &rec.SourceName, &rec.TrackID, &rec.Digest, &rec.Extension, &rec.OutputPath,
		&rec.Title, &rec.Artist, &rec.Album, &enriched, &rec.RunID, &converted); err != nil {
		return Record{}, fmt.Errorf("scan conversion: %w", err)
	}
	rec.Enriched = enriched != 0
	if ts, err := time.Parse(timeLayout, converted); err == nil {
		rec.ConvertedAt = ts
	}
	return rec, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
