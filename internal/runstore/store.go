// Package runstore keeps the history of pipeline runs in SQLite.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/nishad/enaimport/internal/errors"
	"github.com/nishad/enaimport/internal/models"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = apperrors.New("run not found")

// Store wraps the run history database
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the run store at path.
func Open(path string) (*Store, error) {
	const op = apperrors.Op("runstore.Open")

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, apperrors.E(op, apperrors.KindIO, err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000&_sync=NORMAL")
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, apperrors.E(op, apperrors.KindDatabase, err, "set "+pragma)
		}
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, apperrors.E(op, apperrors.KindDatabase, err, "create tables")
	}
	db.SetMaxOpenConns(1)

	return &Store{db: db, path: path}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		run_timestamp TIMESTAMP NOT NULL,
		pipeline_name TEXT NOT NULL,
		status TEXT NOT NULL,
		failed_accessions TEXT NOT NULL DEFAULT '',
		failure_cause TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON pipeline_runs(run_timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_pipeline ON pipeline_runs(pipeline_name);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Save records run. Runs are written once; saving an existing id fails.
func (s *Store) Save(ctx context.Context, run *models.PipelineRun) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO pipeline_runs
		(id, run_timestamp, pipeline_name, status, failed_accessions, failure_cause)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Timestamp.UTC(), run.PipelineName, string(run.Status),
		run.FailedAccessions, sql.NullString{String: run.FailureCause, Valid: run.FailureCause != ""})
	if err != nil {
		return apperrors.E(apperrors.Op("runstore.Save"), apperrors.KindDatabase, err, run.ID)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.E(apperrors.Op("runstore.Ping"), apperrors.KindDatabase, err)
	}
	return nil
}

// Get returns the run with id.
func (s *Store) Get(ctx context.Context, id string) (*models.PipelineRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, run_timestamp, pipeline_name, status,
		failed_accessions, failure_cause FROM pipeline_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.E(apperrors.Op("runstore.Get"), apperrors.KindValidation, ErrNotFound, id)
	}
	if err != nil {
		return nil, apperrors.E(apperrors.Op("runstore.Get"), apperrors.KindDatabase, err, id)
	}
	return run, nil
}

// Filter narrows List results.
type Filter struct {
	PipelineName string
	Status       models.RunStatus
	Limit        int
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]*models.PipelineRun, error) {
	const op = apperrors.Op("runstore.List")

	query := `SELECT id, run_timestamp, pipeline_name, status, failed_accessions, failure_cause
		FROM pipeline_runs WHERE 1=1`
	var args []interface{}
	if f.PipelineName != "" {
		query += " AND pipeline_name = ?"
		args = append(args, f.PipelineName)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY run_timestamp DESC, id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err)
	}
	defer rows.Close()

	var runs []*models.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, apperrors.E(op, apperrors.KindDatabase, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.E(op, apperrors.KindDatabase, err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*models.PipelineRun, error) {
	var (
		run    models.PipelineRun
		ts     time.Time
		status string
		cause  sql.NullString
	)
	if err := sc.Scan(&run.ID, &ts, &run.PipelineName, &status, &run.FailedAccessions, &cause); err != nil {
		return nil, err
	}
	run.Timestamp = ts.UTC()
	run.Status = models.RunStatus(status)
	run.FailureCause = cause.String
	return &run, nil
}
