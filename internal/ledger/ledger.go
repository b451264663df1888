// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of download runs and the status of
// every file each run requested.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/mastget/pkg/types"
)

const defaultLimit = 50

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the ledger database.
type Store struct {
	db *sql.DB
}

// Run describes one pipeline invocation.
type Run struct {
	ID           string    `json:"id" yaml:"id"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	Observations int       `json:"observations" yaml:"observations"`
	BatchSize    int       `json:"batch_size" yaml:"batch_size"`
	Dest         string    `json:"dest" yaml:"dest"`
}

// Entry is a recorded download outcome.
type Entry struct {
	types.DownloadRecord `yaml:",inline"`

	RunID      string    `json:"run_id" yaml:"run_id"`
	Batch      int       `json:"batch" yaml:"batch"`
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// HistoryOptions filters History. Zero values do not constrain.
type HistoryOptions struct {
	RunID  string
	Status types.DownloadStatus
	Limit  int
}

// Open opens or creates the ledger database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			observations INTEGER NOT NULL,
			batch_size INTEGER NOT NULL,
			dest TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS downloads (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			batch INTEGER NOT NULL,
			data_uri TEXT NOT NULL,
			local_path TEXT,
			status TEXT NOT NULL,
			message TEXT,
			size INTEGER,
			url TEXT,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_run_id ON downloads(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StartRun records a new run and returns its generated ID.
func (s *Store) StartRun(ctx context.Context, observations, batchSize int, dest string) (Run, error) {
	run := Run{
		ID:           uuid.NewString(),
		StartedAt:    time.Now().UTC(),
		Observations: observations,
		BatchSize:    batchSize,
		Dest:         dest,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, observations, batch_size, dest) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(timeFormat), run.Observations, run.BatchSize, run.Dest,
	)
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

// RecordBatch stores the download records of one batch in a single transaction.
func (s *Store) RecordBatch(ctx context.Context, runID string, batch int, records []types.DownloadRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO downloads (run_id, batch, data_uri, local_path, status, message, size, url, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(timeFormat)
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			runID, batch, r.DataURI, r.LocalPath, string(r.Status), r.Message, r.Size, r.URL, now,
		)
		if err != nil {
			return fmt.Errorf("inserting record %s: %w", r.DataURI, err)
		}
	}
	return tx.Commit()
}

// History returns recorded downloads, newest first.
func (s *Store) History(ctx context.Context, opts HistoryOptions) ([]Entry, error) {
	var where []string
	var args []any
	if opts.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, opts.RunID)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, strings.ToUpper(string(opts.Status)))
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	query := `SELECT run_id, batch, data_uri, local_path, status, message, size, url, recorded_at FROM downloads`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                       Entry
			status, recorded        string
			localPath, message, url sql.NullString
			size                    sql.NullInt64
		)
		if err := rows.Scan(&e.RunID, &e.Batch, &e.DataURI, &localPath, &status, &message, &size, &url, &recorded); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Status = types.DownloadStatus(status)
		e.LocalPath = localPath.String
		e.Message = message.String
		e.URL = url.String
		e.Size = size.Int64
		e.RecordedAt, _ = time.Parse(timeFormat, recorded)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, observations, batch_size, dest FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			started string
			dest    sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &r.Observations, &r.BatchSize, &dest); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeFormat, started)
		r.Dest = dest.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
