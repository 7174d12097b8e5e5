// Package runhistory records one row per importer invocation in a small
// SQLite database, schema-managed with golang-migrate. It is purely an
// operational sidecar (spec.md §6 [NEW]): never read by the import
// pipeline, and a failure to write a run's history is logged and
// swallowed rather than failing the import itself.
package runhistory

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store owns the run-history database connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the run-history database at path and
// applies any outstanding migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runhistory: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("runhistory: set pragmas: %w", err)
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("runhistory: embedded migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("runhistory: migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("runhistory: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("runhistory: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		db.Close()
		return nil, fmt.Errorf("runhistory: migrate up: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Run tracks one in-progress import's history row.
type Run struct {
	store     *Store
	id        string
	startedAt time.Time
}

// Begin inserts a new run_history row in "running" state and returns a
// handle to finish it.
func (s *Store) Begin(inputPath, outputPath string, settings any) (*Run, error) {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("runhistory: marshal settings: %w", err)
	}
	id := uuid.NewString()
	started := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO run_history (run_id, started_at, input_path, output_path, settings_json) VALUES (?, ?, ?, ?, ?)`,
		id, started.Format(time.RFC3339Nano), inputPath, outputPath, string(settingsJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("runhistory: insert run: %w", err)
	}
	return &Run{store: s, id: id, startedAt: started}, nil
}

// Finish records a run's outcome: point/segment counts, per-stage
// durations, and either "ok" or the error that ended the run.
func (r *Run) Finish(pointCount, segmentCount int, stageDurations map[string]int64, runErr error) error {
	status := "ok"
	var errMsg sql.NullString
	if runErr != nil {
		status = "error"
		errMsg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	durationsJSON, err := json.Marshal(stageDurations)
	if err != nil {
		return fmt.Errorf("runhistory: marshal stage durations: %w", err)
	}
	_, err = r.store.db.Exec(
		`UPDATE run_history SET finished_at = ?, point_count = ?, segment_count = ?, stage_durations_json = ?, exit_status = ?, error_message = ? WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), pointCount, segmentCount, string(durationsJSON), status, errMsg, r.id,
	)
	if err != nil {
		return fmt.Errorf("runhistory: update run %s: %w", r.id, err)
	}
	return nil
}
