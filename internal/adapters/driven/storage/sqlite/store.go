package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultListLimit caps ListReports when no limit is given.
const DefaultListLimit = 20

// Store is a SQLite-based storage for build history.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-rag/data/history.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-rag", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// BuildReportStore returns a BuildReportStore interface backed by this store.
func (s *Store) BuildReportStore() driven.BuildReportStore {
	return &buildReportStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_builds.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Build Report Store ====================

// buildReportStore implements driven.BuildReportStore.
type buildReportStore struct {
	store *Store
}

var _ driven.BuildReportStore = (*buildReportStore)(nil)

// SaveReport stores a run and replaces its failures.
func (s *buildReportStore) SaveReport(ctx context.Context, report *domain.BuildReport) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO builds (id, index_id, index_path, status, documents, chunks, records, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			index_id = excluded.index_id,
			index_path = excluded.index_path,
			status = excluded.status,
			documents = excluded.documents,
			chunks = excluded.chunks,
			records = excluded.records,
			error = excluded.error,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`, report.ID, report.IndexID, report.IndexPath, string(report.Status),
		report.Documents, report.Chunks, report.Records, report.Error,
		report.StartedAt.UTC(), report.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving build: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunk_failures WHERE build_id = ?", report.ID); err != nil {
		return fmt.Errorf("clearing failures: %w", err)
	}

	if len(report.Failures) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunk_failures (build_id, seq, source_path, file_chunk_idx, error)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing failure insert: %w", err)
		}
		defer stmt.Close()

		for i, f := range report.Failures {
			if _, err := stmt.ExecContext(ctx, report.ID, i, f.SourcePath, f.FileChunkIdx, f.Error); err != nil {
				return fmt.Errorf("saving failure %d: %w", i, err)
			}
		}
	}

	return tx.Commit()
}

// ListReports returns the most recent runs first, with their failures.
func (s *buildReportStore) ListReports(ctx context.Context, limit int) ([]domain.BuildReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, index_id, index_path, status, documents, chunks, records, error, started_at, finished_at
		FROM builds ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	defer rows.Close()

	var reports []domain.BuildReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating builds: %w", err)
	}

	for i := range reports {
		failures, err := s.failures(ctx, reports[i].ID)
		if err != nil {
			return nil, err
		}
		reports[i].Failures = failures
	}

	return reports, nil
}

// GetReport returns a run with its failures.
func (s *buildReportStore) GetReport(ctx context.Context, id string) (*domain.BuildReport, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, index_id, index_path, status, documents, chunks, records, error, started_at, finished_at
		FROM builds WHERE id = ?
	`, id)

	r, err := scanReport(row)
	if err != nil {
		return nil, err
	}

	r.Failures, err = s.failures(ctx, id)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *buildReportStore) failures(ctx context.Context, buildID string) ([]domain.ChunkFailure, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_path, file_chunk_idx, error
		FROM chunk_failures WHERE build_id = ? ORDER BY seq
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("listing failures: %w", err)
	}
	defer rows.Close()

	var failures []domain.ChunkFailure
	for rows.Next() {
		var f domain.ChunkFailure
		if err := rows.Scan(&f.SourcePath, &f.FileChunkIdx, &f.Error); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*domain.BuildReport, error) {
	var r domain.BuildReport
	var status string
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(&r.ID, &r.IndexID, &r.IndexPath, &status, &r.Documents, &r.Chunks,
		&r.Records, &r.Error, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning build: %w", err)
	}

	r.Status = domain.BuildStatus(status)
	r.StartedAt = startedAt.Time
	r.FinishedAt = finishedAt.Time
	return &r, nil
}
