// Package storage provides the SQLite-based run journal.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
	StatusFailed    = "failed"
)

// Store manages the SQLite database connection for the run journal.
type Store struct {
	db *sql.DB
}

// Run is one recorded simulation execution.
type Run struct {
	ID              string
	Scenario        string
	Mode            string
	GridSize        int
	Status          string
	ControllerTicks int64
	MovementTicks   int64
	SkippedTicks    int64
	Halts           int
	Resumes         int
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Event is one journaled transition of a train.
type Event struct {
	ID        int64
	RunID     string
	Tick      int64
	Kind      string
	Train     string
	Track     string
	BlockedBy string
	Position  float64
}

// TrainState is the state of a train when its run finished.
type TrainState struct {
	TrainID   string
	Name      string
	TrackID   string
	Position  float64
	Direction int
	Speed     float64
	Halted    bool
	BlockedBy string
}

// RunSummary carries the counters written when a run finishes.
type RunSummary struct {
	Status          string
	ControllerTicks int64
	MovementTicks   int64
	SkippedTicks    int64
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create parent directories
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			scenario TEXT NOT NULL,
			mode TEXT NOT NULL,
			grid_size INTEGER NOT NULL,
			status TEXT NOT NULL,
			controller_ticks INTEGER NOT NULL DEFAULT 0,
			movement_ticks INTEGER NOT NULL DEFAULT 0,
			skipped_ticks INTEGER NOT NULL DEFAULT 0,
			halts INTEGER NOT NULL DEFAULT 0,
			resumes INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario);

		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			tick INTEGER NOT NULL,
			kind TEXT NOT NULL,
			train TEXT NOT NULL,
			track TEXT,
			blocked_by TEXT,
			position REAL NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, id);

		CREATE TABLE IF NOT EXISTS train_states (
			run_id TEXT NOT NULL REFERENCES runs(id),
			train_id TEXT NOT NULL,
			name TEXT NOT NULL,
			track_id TEXT NOT NULL,
			position REAL NOT NULL,
			direction INTEGER NOT NULL,
			speed REAL NOT NULL,
			halted INTEGER NOT NULL DEFAULT 0,
			blocked_by TEXT,
			PRIMARY KEY (run_id, train_id)
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginRun records the start of a run and returns its ID.
func (s *Store) BeginRun(scenario, mode string, gridSize int) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO runs (id, scenario, mode, grid_size, status) VALUES (?, ?, ?, ?, ?)",
		id, scenario, mode, gridSize, StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("storage: cannot begin run: %w", err)
	}
	return id, nil
}

// RecordEvents appends events to a run in one transaction.
func (s *Store) RecordEvents(runID string, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO events (run_id, tick, kind, train, track, blocked_by, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(runID, e.Tick, e.Kind, e.Train, nullString(e.Track), nullString(e.BlockedBy), e.Position); err != nil {
			return fmt.Errorf("storage: cannot save event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: cannot commit events: %w", err)
	}
	return nil
}

// FinishRun writes the final counters and train states of a run.
func (s *Store) FinishRun(runID string, summary RunSummary, trains []TrainState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE runs SET
		   status = ?, controller_ticks = ?, movement_ticks = ?, skipped_ticks = ?,
		   halts = (SELECT COUNT(*) FROM events WHERE run_id = ? AND kind = 'halted'),
		   resumes = (SELECT COUNT(*) FROM events WHERE run_id = ? AND kind = 'resumed'),
		   finished_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		summary.Status, summary.ControllerTicks, summary.MovementTicks, summary.SkippedTicks,
		runID, runID, runID,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("storage: unknown run %s", runID)
	}

	for _, t := range trains {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO train_states
			 (run_id, train_id, name, track_id, position, direction, speed, halted, blocked_by)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, t.TrainID, t.Name, t.TrackID, t.Position, t.Direction, t.Speed, t.Halted, nullString(t.BlockedBy),
		)
		if err != nil {
			return fmt.Errorf("storage: cannot save train state: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: cannot commit run: %w", err)
	}
	return nil
}

const runColumns = `id, scenario, mode, grid_size, status, controller_ticks, movement_ticks,
	skipped_ticks, halts, resumes, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var startedAt, finishedAt any
	err := row.Scan(
		&r.ID, &r.Scenario, &r.Mode, &r.GridSize, &r.Status,
		&r.ControllerTicks, &r.MovementTicks, &r.SkippedTicks,
		&r.Halts, &r.Resumes, &startedAt, &finishedAt,
	)
	if err != nil {
		return Run{}, err
	}
	r.StartedAt = parseTime(startedAt)
	r.FinishedAt = parseTime(finishedAt)
	return r, nil
}

// RunByID retrieves a run by its full ID or a unique prefix of it.
// Returns nil if no run matches.
func (s *Store) RunByID(id string) (*Run, error) {
	if id == "" {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2`,
		id, id,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query run: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		if r.ID == id {
			return &r, nil
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	switch len(runs) {
	case 0:
		return nil, nil
	case 1:
		return &runs[0], nil
	default:
		return nil, fmt.Errorf("storage: run id prefix %q is ambiguous", id)
	}
}

// RecentRuns retrieves the most recent runs, optionally for one scenario.
func (s *Store) RecentRuns(scenario string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+`
		 FROM runs
		 WHERE ? = '' OR scenario = ?
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ?`,
		scenario, scenario, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return runs, nil
}

// RunEvents retrieves the events of a run in the order they were recorded.
func (s *Store) RunEvents(runID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, tick, kind, train, track, blocked_by, position
		 FROM events
		 WHERE run_id = ?
		 ORDER BY id
		 LIMIT ?`,
		runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var track, blockedBy sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.Tick, &e.Kind, &e.Train, &track, &blockedBy, &e.Position); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.Track = track.String
		e.BlockedBy = blockedBy.String
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return events, nil
}

// RunTrains retrieves the final train states of a run.
func (s *Store) RunTrains(runID string) ([]TrainState, error) {
	rows, err := s.db.Query(
		`SELECT train_id, name, track_id, position, direction, speed, halted, blocked_by
		 FROM train_states
		 WHERE run_id = ?
		 ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query train states: %w", err)
	}
	defer rows.Close()

	var states []TrainState
	for rows.Next() {
		var t TrainState
		var blockedBy sql.NullString
		if err := rows.Scan(&t.TrainID, &t.Name, &t.TrackID, &t.Position, &t.Direction, &t.Speed, &t.Halted, &blockedBy); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		t.BlockedBy = blockedBy.String
		states = append(states, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return states, nil
}

// ScenarioStats contains aggregated statistics for a scenario.
type ScenarioStats struct {
	Scenario      string
	Runs          int
	MovementTicks int64
	Halts         int64
	LastRun       time.Time
}

// GetScenarioStats retrieves aggregated statistics for one scenario.
func (s *Store) GetScenarioStats(scenario string) (*ScenarioStats, error) {
	stats := &ScenarioStats{Scenario: scenario}

	var lastRun any
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(movement_ticks), 0), COALESCE(SUM(halts), 0), MAX(started_at)
		 FROM runs WHERE scenario = ?`,
		scenario,
	).Scan(&stats.Runs, &stats.MovementTicks, &stats.Halts, &lastRun)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get scenario stats: %w", err)
	}
	stats.LastRun = parseTime(lastRun)

	return stats, nil
}

// GetAllScenarioStats retrieves statistics for every scenario that has runs.
func (s *Store) GetAllScenarioStats() (map[string]*ScenarioStats, error) {
	rows, err := s.db.Query(
		`SELECT scenario, COUNT(*), SUM(movement_ticks), SUM(halts), MAX(started_at)
		 FROM runs
		 GROUP BY scenario`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get all scenario stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]*ScenarioStats)
	for rows.Next() {
		var st ScenarioStats
		var lastRun any
		if err := rows.Scan(&st.Scenario, &st.Runs, &st.MovementTicks, &st.Halts, &lastRun); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		st.LastRun = parseTime(lastRun)
		stats[st.Scenario] = &st
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return stats, nil
}

// DeleteRun removes a run with its events and train states.
func (s *Store) DeleteRun(runID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM events WHERE run_id = ?",
		"DELETE FROM train_states WHERE run_id = ?",
		"DELETE FROM runs WHERE id = ?",
	} {
		if _, err := tx.Exec(q, runID); err != nil {
			return fmt.Errorf("storage: cannot delete run: %w", err)
		}
	}
	return tx.Commit()
}

// parseTime handles both time.Time and string datetimes.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
