package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/tally/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/tally/internal/core/domain"
	"github.com/custodia-labs/tally/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.JobStore = (*Store)(nil)

// Store is a SQLite-backed job store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path.
// If path is empty, defaults to ~/.tally/data/jobs.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".tally", "data", "jobs.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL lets the CLI read job state while a watcher writes it.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
	}

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

// migrate runs all pending up migrations, recording each version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_jobs.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveJob stores or updates a job. The row keeps its creation sequence.
func (s *Store) SaveJob(ctx context.Context, job *domain.IngestionJob) error {
	if job == nil || job.ID == "" {
		return domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	created := job.CreatedAt
	if created.IsZero() {
		created = now
	}
	updated := job.UpdatedAt
	if updated.IsZero() {
		updated = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_jobs (id, source_id, filename, state, attempt_count, last_error, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			filename = excluded.filename,
			state = excluded.state,
			attempt_count = excluded.attempt_count,
			last_error = excluded.last_error,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, job.ID, job.SourceID, job.Filename, string(job.State), job.AttemptCount,
		nullString(job.LastError), nullString(string(job.Status)),
		formatTime(created), formatTime(updated))
	if err != nil {
		return fmt.Errorf("saving job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (*domain.IngestionJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_id, filename, state, attempt_count, last_error, status, created_at, updated_at
		FROM ingestion_jobs WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs in creation order, filtered by state when states are given.
func (s *Store) ListJobs(ctx context.Context, states ...domain.JobState) ([]domain.IngestionJob, error) {
	query := `
		SELECT id, source_id, filename, state, attempt_count, last_error, status, created_at, updated_at
		FROM ingestion_jobs`
	var args []any
	if len(states) > 0 {
		for _, st := range slices.Compact(slices.Sorted(slices.Values(states))) {
			args = append(args, string(st))
		}
		query += " WHERE state IN (?" + strings.Repeat(", ?", len(args)-1) + ")"
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.IngestionJob //nolint:prealloc // size unknown from query
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}
	return jobs, nil
}

// DeleteJob removes a job.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM ingestion_jobs WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting job: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.IngestionJob, error) {
	var (
		job                domain.IngestionJob
		state              string
		lastError, status  sql.NullString
		createdAt, updated string
	)
	if err := row.Scan(&job.ID, &job.SourceID, &job.Filename, &state, &job.AttemptCount,
		&lastError, &status, &createdAt, &updated); err != nil {
		return nil, err
	}
	job.State = domain.JobState(state)
	job.LastError = lastError.String
	job.Status = domain.DocumentStatus(status.String)
	job.CreatedAt = parseTime(createdAt)
	job.UpdatedAt = parseTime(updated)
	return &job, nil
}

// formatTime stores times as RFC3339 with nanoseconds in UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime returns the zero time for malformed values.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
