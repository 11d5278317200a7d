package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Status string

const (
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusEmpty    Status = "empty"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// ErrNotFound is returned when no job matches the given ID.
var ErrNotFound = errors.New("job not found")

type Job struct {
	ID         string     `json:"id"`
	FileName   string     `json:"file_name"`
	Language   string     `json:"language"`
	Status     Status     `json:"status"`
	Cues       int        `json:"cues"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store keeps a history of extraction jobs in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	file_name   TEXT NOT NULL,
	language    TEXT NOT NULL,
	status      TEXT NOT NULL,
	cues        INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	finished_at INTEGER
);
CREATE INDEX IF NOT EXISTS jobs_created_at ON jobs(created_at);
`

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Create(ctx context.Context, id, fileName, language string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, file_name, language, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, fileName, language, string(StatusRunning), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", id, err)
	}
	return nil
}

func (s *Store) Finish(ctx context.Context, id string, status Status, cues int, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, cues = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), cues, msg, time.Now().UTC().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, language, status, cues, error, created_at, finished_at FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j, err
}

// List returns the most recent jobs first.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, language, status, cues, error, created_at, finished_at
		 FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (Job, error) {
	var (
		j        Job
		status   string
		created  int64
		finished sql.NullInt64
	)
	if err := sc.Scan(&j.ID, &j.FileName, &j.Language, &status, &j.Cues, &j.Error, &created, &finished); err != nil {
		return Job{}, err
	}
	j.Status = Status(status)
	j.CreatedAt = time.UnixMilli(created).UTC()
	if finished.Valid {
		t := time.UnixMilli(finished.Int64).UTC()
		j.FinishedAt = &t
	}
	return j, nil
}
