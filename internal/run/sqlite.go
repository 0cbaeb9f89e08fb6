package run

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/maauso/offervideo/internal/pipeline"
)

// Compile-time check that SQLiteRepository implements Repository.
var _ Repository = (*SQLiteRepository)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	feeds          TEXT NOT NULL,
	existing       INTEGER NOT NULL DEFAULT 0,
	created        INTEGER NOT NULL DEFAULT 0,
	failed         INTEGER NOT NULL DEFAULT 0,
	missing_image  INTEGER NOT NULL DEFAULT 0,
	filtered       INTEGER NOT NULL DEFAULT 0,
	published      INTEGER NOT NULL DEFAULT 0,
	publish_failed INTEGER NOT NULL DEFAULT 0,
	tasks          INTEGER NOT NULL DEFAULT 0,
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL,
	started_at     TEXT NOT NULL,
	completed_at   TEXT NOT NULL
)`

const selectColumns = `id, status, feeds, existing, created, failed, missing_image, filtered,
	published, publish_failed, tasks, duration_ms, error,
	created_at, updated_at, started_at, completed_at`

// SQLiteRepository persists runs in a SQLite database so the report
// survives restarts.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at path and ensures
// the schema exists.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run database: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping run database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Save inserts or replaces the run.
func (r *SQLiteRepository) Save(ctx context.Context, run *Run) error {
	snap := run.Clone()
	feeds, err := json.Marshal(snap.Feeds)
	if err != nil {
		return fmt.Errorf("encode feeds: %w", err)
	}

	s := snap.Summary
	_, err = r.db.ExecContext(ctx, `INSERT OR REPLACE INTO runs (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, string(snap.Status), string(feeds),
		s.Existing, s.Created, s.Failed, s.MissingImage, s.Filtered,
		s.Published, s.PublishFailed, s.Tasks, s.Duration.Milliseconds(), snap.Error,
		formatTime(snap.CreatedAt), formatTime(snap.UpdatedAt),
		formatTime(snap.StartedAt), formatTime(snap.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", snap.ID, err)
	}
	return nil
}

// FindByID retrieves a run by ID.
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find run %s: %w", id, err)
	}
	return run, nil
}

// List returns all runs, most recent first.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Run, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM runs`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	sortRecentFirst(runs)
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run                                        Run
		status, feeds                              string
		durationMS                                 int64
		createdAt, updatedAt, startedAt, completed string
		s                                          pipeline.Summary
	)
	err := sc.Scan(&run.ID, &status, &feeds,
		&s.Existing, &s.Created, &s.Failed, &s.MissingImage, &s.Filtered,
		&s.Published, &s.PublishFailed, &s.Tasks, &durationMS, &run.Error,
		&createdAt, &updatedAt, &startedAt, &completed,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(feeds), &run.Feeds); err != nil {
		return nil, fmt.Errorf("decode feeds: %w", err)
	}

	run.Status = Status(status)
	s.Duration = time.Duration(durationMS) * time.Millisecond
	run.Summary = s

	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&run.CreatedAt, createdAt},
		{&run.UpdatedAt, updatedAt},
		{&run.StartedAt, startedAt},
		{&run.CompletedAt, completed},
	} {
		if *f.dst, err = time.Parse(time.RFC3339Nano, f.src); err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
