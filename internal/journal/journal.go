// Package journal records the raw frames of each analysis run in a local
// sqlite database. Frames are stored verbatim so a run can later be replayed
// through the real parser and reducer, or exported, without the backend.
package journal

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"ecoweave/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	started_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS frames (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq INTEGER NOT NULL,
	raw BLOB NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Journal is a frame store backed by sqlite.
type Journal struct {
	db *sql.DB
}

// RunInfo summarizes one recorded run.
type RunInfo struct {
	ID          string
	Description string
	StartedAt   time.Time
	FrameCount  int
}

// Open opens or creates the journal database at path. Pass ":memory:" for an
// ephemeral journal in tests.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	// sqlite handles one writer at a time
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// BeginRun registers a run before its frames arrive.
func (j *Journal) BeginRun(id, description string) error {
	_, err := j.db.Exec(
		"INSERT OR IGNORE INTO runs (id, description, started_at) VALUES (?, ?, ?)",
		id, description, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", id, err)
	}
	return nil
}

// AppendFrame stores one raw frame at the next sequence position.
func (j *Journal) AppendFrame(runID string, seq int, raw []byte) error {
	_, err := j.db.Exec(
		"INSERT OR IGNORE INTO frames (run_id, seq, raw) VALUES (?, ?, ?)",
		runID, seq, raw,
	)
	if err != nil {
		return fmt.Errorf("append frame %d to run %s: %w", seq, runID, err)
	}
	return nil
}

// Runs lists recorded runs, most recent first.
func (j *Journal) Runs() ([]RunInfo, error) {
	rows, err := j.db.Query(`
		SELECT r.id, r.description, r.started_at, COUNT(f.seq)
		FROM runs r LEFT JOIN frames f ON f.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var started string
		if err := rows.Scan(&info.ID, &info.Description, &started, &info.FrameCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		info.StartedAt, _ = time.Parse(time.RFC3339, started)
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// Frames returns a run's raw frames in sequence order.
func (j *Journal) Frames(runID string) ([][]byte, error) {
	rows, err := j.db.Query("SELECT raw FROM frames WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, fmt.Errorf("load frames for run %s: %w", runID, err)
	}
	defer rows.Close()

	var frames [][]byte
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		frames = append(frames, raw)
	}
	return frames, rows.Err()
}

// Recorder streams one run's frames into the journal. Recording is
// best-effort: failures are logged and never propagate into the live stream.
type Recorder struct {
	j     *Journal
	runID string

	mu  sync.Mutex
	seq int
}

// NewRecorder registers the run and returns a recorder for it. A nil journal
// yields a nil recorder, which Observe tolerates.
func (j *Journal) NewRecorder(runID, description string) *Recorder {
	if err := j.BeginRun(runID, description); err != nil {
		logging.Warn("journal disabled for run", "run", runID, "error", err)
		return nil
	}
	return &Recorder{j: j, runID: runID}
}

// Observe stores one raw frame. Safe on a nil recorder.
func (r *Recorder) Observe(raw []byte) {
	if r == nil {
		return
	}
	r.mu.Lock()
	seq := r.seq
	r.seq++
	r.mu.Unlock()

	if err := r.j.AppendFrame(r.runID, seq, raw); err != nil {
		logging.Warn("dropping journal frame", "run", r.runID, "seq", seq, "error", err)
	}
}
