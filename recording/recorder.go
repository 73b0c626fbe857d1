// Package recording stores the summaries of simulation runs.
package recording

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/btbsim/bpu"
	"github.com/sarchlab/btbsim/scoring"
)

// Summary is the record kept for one simulation run.
type Summary struct {
	RunID     string
	Source    string
	StartedAt time.Time

	Config   bpu.Config
	Counters scoring.Counters
	Stats    bpu.Stats
}

// NewRunID returns a fresh, sortable run identifier.
func NewRunID() string {
	return xid.New().String()
}

// A Recorder persists run summaries.
type Recorder interface {
	// Record buffers a summary.
	Record(s Summary) error

	// Flush writes all buffered summaries.
	Flush() error

	// Close flushes and releases the backend.
	Close() error
}

// SQLiteRecorder writes summaries into the runs table of a SQLite
// database.
type SQLiteRecorder struct {
	*sql.DB

	path    string
	pending []Summary
	closed  bool
}

const createRunsTable = `CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	source TEXT,
	started_at INTEGER, -- unix nanoseconds
	btb_entries INTEGER,
	associativity INTEGER,
	ras_entries INTEGER,
	tag_bits INTEGER,
	mispredict_rate INTEGER,
	direction TEXT,
	instructions INTEGER,
	branches INTEGER,
	taken INTEGER,
	correct_both INTEGER,
	correct_direction INTEGER,
	correct_target INTEGER,
	btb_hits INTEGER,
	btb_misses INTEGER,
	btb_evictions INTEGER,
	ras_overflows INTEGER,
	ras_underflows INTEGER
)`

const insertRun = `INSERT INTO runs VALUES
	(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// NewSQLiteRecorder opens (or creates) the database at path and makes sure
// the runs table exists. Pending summaries are flushed when the process
// exits through atexit.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording database: %w", err)
	}

	if _, err := db.Exec(createRunsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}

	r := &SQLiteRecorder{DB: db, path: path}

	atexit.Register(func() {
		if err := r.Close(); err != nil {
			log.Printf("recording: %v", err)
		}
	})

	return r, nil
}

// Path returns the database file.
func (r *SQLiteRecorder) Path() string {
	return r.path
}

// Record implements Recorder.
func (r *SQLiteRecorder) Record(s Summary) error {
	if r.closed {
		return fmt.Errorf("recorder for %s is closed", r.path)
	}
	if s.RunID == "" {
		s.RunID = NewRunID()
	}

	r.pending = append(r.pending, s)

	return nil
}

// Flush implements Recorder. All pending summaries are written in one
// transaction.
func (r *SQLiteRecorder) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}

	tx, err := r.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(insertRun)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range r.pending {
		_, err := stmt.Exec(
			s.RunID,
			s.Source,
			s.StartedAt.UnixNano(),
			s.Config.BTBEntries,
			s.Config.Associativity,
			s.Config.RASEntries,
			s.Config.TagBits,
			s.Config.MispredictRate,
			s.Config.Direction,
			s.Counters.Instructions,
			s.Counters.Branches,
			s.Counters.Taken,
			s.Counters.CorrectBoth,
			s.Counters.CorrectDirection,
			s.Counters.CorrectTarget,
			s.Stats.BTBHits,
			s.Stats.BTBMisses,
			s.Stats.BTBEvictions,
			s.Stats.RASOverflows,
			s.Stats.RASUnderflows,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert run %s: %w", s.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit runs: %w", err)
	}

	r.pending = nil

	return nil
}

// Close implements Recorder. Closing twice is a no-op.
func (r *SQLiteRecorder) Close() error {
	if r.closed {
		return nil
	}

	flushErr := r.Flush()
	r.closed = true

	if err := r.DB.Close(); err != nil {
		return fmt.Errorf("failed to close recording database: %w", err)
	}

	return flushErr
}

// Runs reads back every recorded run, oldest first.
func (r *SQLiteRecorder) Runs() ([]Summary, error) {
	rows, err := r.Query(`SELECT
		run_id, source, started_at,
		btb_entries, associativity, ras_entries, tag_bits, mispredict_rate, direction,
		instructions, branches, taken, correct_both, correct_direction, correct_target,
		btb_hits, btb_misses, btb_evictions, ras_overflows, ras_underflows
		FROM runs ORDER BY started_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Summary
	for rows.Next() {
		var s Summary
		var startedAt int64

		err := rows.Scan(
			&s.RunID, &s.Source, &startedAt,
			&s.Config.BTBEntries, &s.Config.Associativity, &s.Config.RASEntries,
			&s.Config.TagBits, &s.Config.MispredictRate, &s.Config.Direction,
			&s.Counters.Instructions, &s.Counters.Branches, &s.Counters.Taken,
			&s.Counters.CorrectBoth, &s.Counters.CorrectDirection, &s.Counters.CorrectTarget,
			&s.Stats.BTBHits, &s.Stats.BTBMisses, &s.Stats.BTBEvictions,
			&s.Stats.RASOverflows, &s.Stats.RASUnderflows,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		s.Stats.BTBLookups = s.Stats.BTBHits + s.Stats.BTBMisses
		s.StartedAt = time.Unix(0, startedAt).UTC()

		runs = append(runs, s)
	}

	return runs, rows.Err()
}
