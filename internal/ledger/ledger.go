// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records extraction run outcomes in a SQLite database.
// The ledger is bookkeeping only: resume decisions are made from the
// existence of the per-participant output file, never from these rows,
// and no feature values are stored here.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Participant statuses recorded per run.
const (
	StatusProcessed      = "processed"
	StatusSkippedMissing = "skipped_missing_input"
	StatusSkippedDone    = "skipped_already_done"
)

// Region statuses recorded per (participant, label).
const (
	RegionExtracted = "extracted"
	RegionMaskError = "mask_error"
)

// Ledger wraps the run-ledger database.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path and ensures the
// schema exists.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			output_root TEXT NOT NULL,
			bin_width INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			participant_id TEXT NOT NULL,
			status TEXT NOT NULL,
			PRIMARY KEY (run_id, participant_id)
		)`,
		`CREATE TABLE IF NOT EXISTS regions (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			participant_id TEXT NOT NULL,
			label_index INTEGER NOT NULL,
			region_name TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT,
			PRIMARY KEY (run_id, participant_id, label_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_regions_run ON regions(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RunRecorder records outcomes for one extraction run.
type RunRecorder struct {
	l     *Ledger
	runID int64
}

// BeginRun inserts a run row and returns a recorder bound to it.
func (l *Ledger) BeginRun(outputRoot string, binWidth int, startedAt time.Time) (*RunRecorder, error) {
	res, err := l.db.Exec(
		`INSERT INTO runs (started_at, output_root, bin_width) VALUES (?, ?, ?)`,
		startedAt.UTC().Format(time.RFC3339), outputRoot, binWidth,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting run row: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading run id: %w", err)
	}
	return &RunRecorder{l: l, runID: runID}, nil
}

// Participant records the final status of one participant in this run.
func (r *RunRecorder) Participant(id, status string) error {
	_, err := r.l.db.Exec(
		`INSERT INTO participants (run_id, participant_id, status) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, participant_id) DO UPDATE SET status=excluded.status`,
		r.runID, id, status,
	)
	if err != nil {
		return fmt.Errorf("recording participant %s: %w", id, err)
	}
	return nil
}

// Region records the outcome of one (participant, label) extraction.
func (r *RunRecorder) Region(id string, label int, name, status, message string) error {
	_, err := r.l.db.Exec(
		`INSERT INTO regions (run_id, participant_id, label_index, region_name, status, message)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, participant_id, label_index) DO UPDATE SET
			status=excluded.status, message=excluded.message`,
		r.runID, id, label, name, status, message,
	)
	if err != nil {
		return fmt.Errorf("recording region %d for %s: %w", label, id, err)
	}
	return nil
}

// RunSummary aggregates one run's recorded outcomes.
type RunSummary struct {
	RunID          int64
	StartedAt      string
	OutputRoot     string
	BinWidth       int
	Processed      int
	SkippedMissing int
	SkippedDone    int
	Extracted      int
	MaskErrors     int
}

// LastRun returns the summary of the most recent run, or nil when the
// ledger holds no runs yet.
func (l *Ledger) LastRun() (*RunSummary, error) {
	var s RunSummary
	err := l.db.QueryRow(
		`SELECT id, started_at, output_root, bin_width FROM runs ORDER BY id DESC LIMIT 1`,
	).Scan(&s.RunID, &s.StartedAt, &s.OutputRoot, &s.BinWidth)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading last run: %w", err)
	}

	counts := []struct {
		query string
		args  []any
		dest  *int
	}{
		{`SELECT count(*) FROM participants WHERE run_id = ? AND status = ?`, []any{s.RunID, StatusProcessed}, &s.Processed},
		{`SELECT count(*) FROM participants WHERE run_id = ? AND status = ?`, []any{s.RunID, StatusSkippedMissing}, &s.SkippedMissing},
		{`SELECT count(*) FROM participants WHERE run_id = ? AND status = ?`, []any{s.RunID, StatusSkippedDone}, &s.SkippedDone},
		{`SELECT count(*) FROM regions WHERE run_id = ? AND status = ?`, []any{s.RunID, RegionExtracted}, &s.Extracted},
		{`SELECT count(*) FROM regions WHERE run_id = ? AND status = ?`, []any{s.RunID, RegionMaskError}, &s.MaskErrors},
	}
	for _, c := range counts {
		if err := l.db.QueryRow(c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting run outcomes: %w", err)
		}
	}
	return &s, nil
}
