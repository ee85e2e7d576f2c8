package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tourcache/internal/model"
	"tourcache/internal/offline"
	"tourcache/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the offline.Store interface on SQLite. A single
// file holds all four collections; secondary indexes cover lookups by owning
// tour, sync status, and last-accessed time.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	clock offline.Clock
}

// NewSQLiteStore opens a SQLite store at path. path can be a file path or
// ":memory:" for an in-memory database. The clock stamps last-accessed
// bumps. Call Initialize before use.
func NewSQLiteStore(path string, clock offline.Clock) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", offline.ErrStorageUnavailable, err)
	}

	return &SQLiteStore{db: db, path: path, clock: clock}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a raw configured handle.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite serializes writers anyway, and pooled
	// connections to ":memory:" would each see a separate database.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// sql.Open is lazy; force the file open so missing persistence is
	// detected here rather than on first query.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database file: %w", err)
	}

	return db, nil
}

// Initialize creates collections and indexes if absent by running all
// pending migrations. Safe to call repeatedly.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	if err := migrations.MigrateUp(s.db); err != nil {
		return fmt.Errorf("%w: applying schema: %w", offline.ErrStorageUnavailable, err)
	}
	return nil
}

// Tour operations

func (s *SQLiteStore) PutTour(ctx context.Context, tour *model.Tour) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tours (id, graph, status, downloaded_at, last_accessed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			graph = excluded.graph,
			status = excluded.status,
			downloaded_at = excluded.downloaded_at,
			last_accessed = excluded.last_accessed`,
		tour.ID, tour.Graph, string(tour.Status), nullableTime(tour.DownloadedAt), tour.LastAccessed)
	if err != nil {
		return fmt.Errorf("storing tour: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTour(ctx context.Context, id string) (*model.Tour, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, graph, status, downloaded_at, last_accessed FROM tours WHERE id = ?`, id)

	tour, err := scanTour(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding tour: %w", err)
	}

	// Every read counts as an access for retention purposes.
	now := s.clock.Now()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE tours SET last_accessed = ? WHERE id = ?`, now, id); err != nil {
		return nil, fmt.Errorf("bumping last accessed: %w", err)
	}
	tour.LastAccessed = now

	return tour, nil
}

func (s *SQLiteStore) UpdateTourStatus(ctx context.Context, id string, status model.DownloadStatus, downloadedAt *time.Time) error {
	var err error
	if downloadedAt != nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE tours SET status = ?, downloaded_at = ? WHERE id = ?`,
			string(status), *downloadedAt, id)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE tours SET status = ? WHERE id = ?`, string(status), id)
	}
	if err != nil {
		return fmt.Errorf("updating tour status: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListTours(ctx context.Context) ([]*model.Tour, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, graph, status, downloaded_at, last_accessed FROM tours ORDER BY last_accessed DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing tours: %w", err)
	}
	defer rows.Close()

	return collectTours(rows)
}

func (s *SQLiteStore) ToursLastAccessedBefore(ctx context.Context, cutoff time.Time) ([]*model.Tour, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, graph, status, downloaded_at, last_accessed FROM tours
		WHERE last_accessed <= ? ORDER BY last_accessed ASC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("finding stale tours: %w", err)
	}
	defer rows.Close()

	return collectTours(rows)
}

// DeleteTourCascade removes a tour and everything it owns in one
// transaction, so an interruption can never leave orphaned assets behind.
func (s *SQLiteStore) DeleteTourCascade(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM audio_assets WHERE tour_id = ?`,
		`DELETE FROM image_assets WHERE tour_id = ?`,
		`DELETE FROM progress_records WHERE tour_id = ?`,
		`DELETE FROM tours WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("cascading tour delete: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TourSizeBytes(ctx context.Context, id string) (int64, error) {
	var size int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE((SELECT LENGTH(graph) FROM tours WHERE id = ?), 0)
		     + COALESCE((SELECT SUM(LENGTH(payload)) FROM audio_assets WHERE tour_id = ?), 0)
		     + COALESCE((SELECT SUM(LENGTH(payload)) FROM image_assets WHERE tour_id = ?), 0)`,
		id, id, id).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("computing tour size: %w", err)
	}
	return size, nil
}

// Asset operations

func (s *SQLiteStore) PutAudioAsset(ctx context.Context, asset *model.AudioAsset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audio_assets (id, tour_id, stop_id, language, duration_seconds, payload, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tour_id = excluded.tour_id,
			stop_id = excluded.stop_id,
			language = excluded.language,
			duration_seconds = excluded.duration_seconds,
			payload = excluded.payload,
			downloaded_at = excluded.downloaded_at`,
		asset.ID, asset.TourID, asset.StopID, asset.Language, asset.DurationSeconds, asset.Payload, asset.DownloadedAt)
	if err != nil {
		return fmt.Errorf("storing audio asset: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAudioAsset(ctx context.Context, id string) (*model.AudioAsset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tour_id, stop_id, language, duration_seconds, payload, downloaded_at
		FROM audio_assets WHERE id = ?`, id)

	var a model.AudioAsset
	err := row.Scan(&a.ID, &a.TourID, &a.StopID, &a.Language, &a.DurationSeconds, &a.Payload, &a.DownloadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding audio asset: %w", err)
	}
	return &a, nil
}

func (s *SQLiteStore) AudioAssetsByTour(ctx context.Context, tourID string) ([]*model.AudioAsset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tour_id, stop_id, language, duration_seconds, payload, downloaded_at
		FROM audio_assets WHERE tour_id = ?`, tourID)
	if err != nil {
		return nil, fmt.Errorf("finding audio assets by tour: %w", err)
	}
	defer rows.Close()

	var result []*model.AudioAsset
	for rows.Next() {
		var a model.AudioAsset
		if err := rows.Scan(&a.ID, &a.TourID, &a.StopID, &a.Language, &a.DurationSeconds, &a.Payload, &a.DownloadedAt); err != nil {
			return nil, fmt.Errorf("scanning audio asset: %w", err)
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) PutImageAsset(ctx context.Context, asset *model.ImageAsset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO image_assets (id, tour_id, source_url, payload, downloaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tour_id = excluded.tour_id,
			source_url = excluded.source_url,
			payload = excluded.payload,
			downloaded_at = excluded.downloaded_at`,
		asset.ID, asset.TourID, asset.SourceURL, asset.Payload, asset.DownloadedAt)
	if err != nil {
		return fmt.Errorf("storing image asset: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ImageAssetsByTour(ctx context.Context, tourID string) ([]*model.ImageAsset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tour_id, source_url, payload, downloaded_at
		FROM image_assets WHERE tour_id = ?`, tourID)
	if err != nil {
		return nil, fmt.Errorf("finding image assets by tour: %w", err)
	}
	defer rows.Close()

	var result []*model.ImageAsset
	for rows.Next() {
		var a model.ImageAsset
		if err := rows.Scan(&a.ID, &a.TourID, &a.SourceURL, &a.Payload, &a.DownloadedAt); err != nil {
			return nil, fmt.Errorf("scanning image asset: %w", err)
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}

// Progress queue operations

func (s *SQLiteStore) EnqueueProgress(ctx context.Context, rec *model.ProgressRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress_records (id, tour_id, sync_status, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sync_status = excluded.sync_status,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		rec.ID, rec.TourID, string(rec.SyncStatus), rec.Payload, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("queueing progress record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PendingProgress(ctx context.Context) ([]*model.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tour_id, sync_status, payload, created_at, updated_at
		FROM progress_records WHERE sync_status = ? ORDER BY created_at ASC`,
		string(model.SyncPending))
	if err != nil {
		return nil, fmt.Errorf("finding pending progress: %w", err)
	}
	defer rows.Close()

	return collectProgress(rows)
}

func (s *SQLiteStore) ProgressByTour(ctx context.Context, tourID string) ([]*model.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tour_id, sync_status, payload, created_at, updated_at
		FROM progress_records WHERE tour_id = ? ORDER BY created_at ASC`, tourID)
	if err != nil {
		return nil, fmt.Errorf("finding progress by tour: %w", err)
	}
	defer rows.Close()

	return collectProgress(rows)
}

func (s *SQLiteStore) MarkProgressSynced(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE progress_records SET sync_status = ?, updated_at = ? WHERE id = ?`,
		string(model.SyncSynced), s.clock.Now(), id)
	if err != nil {
		return fmt.Errorf("marking progress synced: %w", err)
	}
	return nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTour(row scanner) (*model.Tour, error) {
	var t model.Tour
	var status string
	var downloadedAt sql.NullTime
	if err := row.Scan(&t.ID, &t.Graph, &status, &downloadedAt, &t.LastAccessed); err != nil {
		return nil, err
	}
	t.Status = model.DownloadStatus(status)
	if downloadedAt.Valid {
		at := downloadedAt.Time
		t.DownloadedAt = &at
	}
	return &t, nil
}

func collectTours(rows *sql.Rows) ([]*model.Tour, error) {
	var result []*model.Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tour: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func collectProgress(rows *sql.Rows) ([]*model.ProgressRecord, error) {
	var result []*model.ProgressRecord
	for rows.Next() {
		var r model.ProgressRecord
		var status string
		if err := rows.Scan(&r.ID, &r.TourID, &status, &r.Payload, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning progress record: %w", err)
		}
		r.SyncStatus = model.SyncStatus(status)
		result = append(result, &r)
	}
	return result, rows.Err()
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Compile-time check that SQLiteStore implements offline.Store
var _ offline.Store = (*SQLiteStore)(nil)
