// Package store persists forecast runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"epicast/internal/simulation"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNoRuns is returned when no stored run matches the query.
var ErrNoRuns = errors.New("store: no matching runs")

const defaultListLimit = 20

// Run is the stored metadata of one forecast execution.
type Run struct {
	ID        string
	CreatedAt time.Time
	Cycle     string
	Trials    int
	Seed      int64
	PoolSize  int
	Epics     int
}

// Store wraps SQLite access for forecast history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			cycle TEXT NOT NULL,
			trials INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			pool_size INTEGER NOT NULL,
			epics INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS run_results (
			run_id TEXT NOT NULL,
			epic_key TEXT NOT NULL,
			status TEXT NOT NULL,
			result TEXT NOT NULL,
			PRIMARY KEY (run_id, epic_key)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_cycle ON runs(cycle);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores run metadata together with its per-epic results. A
// missing ID or CreatedAt is filled in before the insert.
func (s *Store) SaveRun(ctx context.Context, run Run, results []simulation.Result) (*Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Epics = len(results)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, cycle, trials, seed, pool_size, epics)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.Format(time.RFC3339Nano),
		run.Cycle,
		run.Trials,
		run.Seed,
		run.PoolSize,
		run.Epics,
	)
	if err != nil {
		return nil, err
	}

	if len(results) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO run_results (run_id, epic_key, status, result)
			 VALUES (?, ?, ?, ?)`)
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, res := range results {
			payload, err := json.Marshal(res)
			if err != nil {
				return nil, err
			}
			if _, err := stmt.ExecContext(ctx, run.ID, res.Key, string(res.Status), string(payload)); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, cycle, trials, seed, pool_size, epics
		 FROM runs
		 ORDER BY created_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// LastRun returns the most recent run and its results. An empty cycle
// matches runs of any cycle.
func (s *Store) LastRun(ctx context.Context, cycle string) (*Run, []simulation.Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, cycle, trials, seed, pool_size, epics
		 FROM runs
		 WHERE (? = '' OR cycle = ?)
		 ORDER BY created_at DESC
		 LIMIT 1`, cycle, cycle)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNoRuns
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM run_results WHERE run_id = ? ORDER BY epic_key ASC`, run.ID)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var results []simulation.Result
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, nil, err
		}
		var res simulation.Result
		if err := json.Unmarshal([]byte(payload), &res); err != nil {
			return nil, nil, err
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return &run, results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var createdAt string
	if err := row.Scan(&run.ID, &createdAt, &run.Cycle, &run.Trials, &run.Seed, &run.PoolSize, &run.Epics); err != nil {
		return Run{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, err
	}
	run.CreatedAt = parsed
	return run, nil
}
