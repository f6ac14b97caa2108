// Package sqlite persists ingestion jobs in SQLite so a restarted watcher
// resumes the jobs it had queued.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. The schema is managed through versioned migrations in the
// migrations/ directory, each a pair of .up.sql and .down.sql files.
//
// By default, the database is stored at ~/.tally/data/jobs.db.
package sqlite
