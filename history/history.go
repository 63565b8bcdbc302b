// Package history keeps an optional SQLite audit trail of runs and the
// verification outcomes inside them.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("not found")

// Outcome labels for verification records.
const (
	OutcomeVerified   = "verified"
	OutcomeReapproved = "reapproved"
	OutcomeRejected   = "rejected"
)

// Run summarizes one pipeline run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Reapproved int
	Verified   int
	Rejected   int
}

// Record is one verification outcome within a run. Counts stay as the video
// platform's wire strings; they are display data here, not numbers.
type Record struct {
	Author      string
	ChannelLink string
	Outcome     string
	Tier        string
	Subscribers string
	Views       string
	RecordedAt  time.Time
}

// DB wraps the SQLite database connection and provides audit operations.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		reapproved INTEGER NOT NULL DEFAULT 0,
		verified INTEGER NOT NULL DEFAULT 0,
		rejected INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS verifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		author TEXT NOT NULL,
		channel_link TEXT NOT NULL,
		outcome TEXT NOT NULL,
		tier TEXT NOT NULL DEFAULT '',
		subscribers TEXT NOT NULL DEFAULT '',
		views TEXT NOT NULL DEFAULT '',
		recorded_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_verifications_run_id ON verifications(run_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// BeginRun opens a new run and returns its ID.
func (db *DB) BeginRun(ctx context.Context) (string, error) {
	id := uuid.NewString()
	query := `INSERT INTO runs (id, started_at) VALUES (?, ?)`

	if _, err := db.conn.ExecContext(ctx, query, id, time.Now()); err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// RecordVerification appends one verification outcome to a run.
func (db *DB) RecordVerification(ctx context.Context, runID string, rec *Record) error {
	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	query := `
	INSERT INTO verifications (run_id, author, channel_link, outcome, tier, subscribers, views, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.ExecContext(ctx, query,
		runID,
		rec.Author,
		rec.ChannelLink,
		rec.Outcome,
		rec.Tier,
		rec.Subscribers,
		rec.Views,
		recordedAt,
	)
	return err
}

// FinishRun closes a run with its outcome totals.
func (db *DB) FinishRun(ctx context.Context, runID string, reapproved, verified, rejected int) error {
	query := `
	UPDATE runs SET finished_at = ?, reapproved = ?, verified = ?, rejected = ?
	WHERE id = ?
	`
	_, err := db.conn.ExecContext(ctx, query, time.Now(), reapproved, verified, rejected, runID)
	return err
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
	SELECT id, started_at, finished_at, reapproved, verified, rejected
	FROM runs WHERE id = ?
	`

	run := &Run{}
	var finishedAt sql.NullTime

	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.StartedAt,
		&finishedAt,
		&run.Reapproved,
		&run.Verified,
		&run.Rejected,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return run, nil
}

// RunRecords returns a run's verification records in insertion order.
func (db *DB) RunRecords(ctx context.Context, runID string) ([]Record, error) {
	query := `
	SELECT author, channel_link, outcome, tier, subscribers, views, recorded_at
	FROM verifications WHERE run_id = ? ORDER BY id
	`

	rows, err := db.conn.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.Author,
			&rec.ChannelLink,
			&rec.Outcome,
			&rec.Tier,
			&rec.Subscribers,
			&rec.Views,
			&rec.RecordedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
