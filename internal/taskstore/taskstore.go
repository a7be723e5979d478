// Package taskstore is the durable, concurrently accessible record of
// per-task execution metadata and outputs: the worker_runs and
// task_outputs tables, plus a supplemental task_plans table persisting
// each run's Stage 1 + Stage 2 enrichment (see SPEC_FULL.md §13.1).
//
// Grounded on the original implementation's WorkersDB (sqlite3 against the
// same two/three tables); backed here by modernc.org/sqlite, a pure-Go
// driver (see DESIGN.md for why no driver in the retrieved pack fit this
// concern).
package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aj002fr/depgraph/internal/engineerr"
	"github.com/aj002fr/depgraph/internal/models"
)

// Store wraps a single sqlite connection. All writes are serialized
// through mu, matching the base spec's "single-writer queue or per-row
// locks" storage requirement; reads take the read lock so callers see a
// committed view without blocking each other.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates (if absent) the schema at path and returns a ready Store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &engineerr.TaskStoreError{Op: "open", Cause: err}
	}
	db.SetMaxOpenConns(1) // single physical file writer; mu still needed for read/write ordering across goroutines
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS worker_runs (
			run_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			duration_ms INTEGER,
			error_message TEXT,
			artifact_ref TEXT,
			PRIMARY KEY (run_id, task_id)
		)`,
		`CREATE TABLE IF NOT EXISTS task_outputs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			output_json TEXT NOT NULL,
			metadata_json TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (run_id, task_id) REFERENCES worker_runs(run_id, task_id)
		)`,
		`CREATE TABLE IF NOT EXISTS task_plans (
			run_id TEXT PRIMARY KEY,
			plan_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_worker_runs_run_id ON worker_runs(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_worker_runs_task_id ON worker_runs(task_id)`,
		`CREATE INDEX IF NOT EXISTS idx_task_outputs_run_id ON task_outputs(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_task_outputs_task_id ON task_outputs(task_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return &engineerr.TaskStoreError{Op: "init_schema", Cause: err}
		}
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// StartTask inserts a new worker_runs row in status "running". Fails with
// *engineerr.AlreadyStarted if (run_id, task_id) already exists.
func (s *Store) StartTask(ctx context.Context, runID, taskID, agentID string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO worker_runs (run_id, task_id, agent_id, status, started_at) VALUES (?, ?, ?, 'running', ?)`,
		runID, taskID, agentID, startedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return &engineerr.AlreadyStarted{RunID: runID, TaskID: taskID}
		}
		return &engineerr.TaskStoreError{Op: "start_task", Cause: err}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite surfaces constraint failures as a plain error whose
	// message contains "UNIQUE constraint failed" or "constraint failed";
	// string matching here mirrors how the teacher's providers already
	// sniff string-shaped error conditions (see providers/llm/*.go).
	msg := err.Error()
	return containsAny(msg, "UNIQUE constraint", "constraint failed", "PRIMARY KEY")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(sub) <= len(s) {
			for i := 0; i+len(sub) <= len(s); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}

// CompleteTask updates a row to status "success" with its artifact
// reference.
func (s *Store) CompleteTask(ctx context.Context, runID, taskID string, durationMS int64, artifactRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE worker_runs SET status='success', completed_at=?, duration_ms=?, artifact_ref=? WHERE run_id=? AND task_id=?`,
		time.Now().UTC().Format(time.RFC3339Nano), durationMS, artifactRef, runID, taskID)
	if err != nil {
		return &engineerr.TaskStoreError{Op: "complete_task", Cause: err}
	}
	return nil
}

// FailTask updates a row to status "failed" with an error cause.
func (s *Store) FailTask(ctx context.Context, runID, taskID string, durationMS int64, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE worker_runs SET status='failed', completed_at=?, duration_ms=?, error_message=? WHERE run_id=? AND task_id=?`,
		time.Now().UTC().Format(time.RFC3339Nano), durationMS, errorMessage, runID, taskID)
	if err != nil {
		return &engineerr.TaskStoreError{Op: "fail_task", Cause: err}
	}
	return nil
}

// StoreOutput inserts one task_outputs row. Must be called after
// CompleteTask, per the base spec's ordering contract.
func (s *Store) StoreOutput(ctx context.Context, runID, taskID, agentID, outputJSON, metadataJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_outputs (run_id, task_id, agent_id, output_json, metadata_json, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, taskID, agentID, outputJSON, metadataJSON, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &engineerr.TaskStoreError{Op: "store_output", Cause: err}
	}
	return nil
}

// GetOutput returns the most recent output_json for (run_id, task_id), or
// "" with ok=false if no row exists.
func (s *Store) GetOutput(ctx context.Context, runID, taskID string) (outputJSON string, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx,
		`SELECT output_json FROM task_outputs WHERE run_id=? AND task_id=? ORDER BY id DESC LIMIT 1`,
		runID, taskID)
	if scanErr := row.Scan(&outputJSON); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, &engineerr.TaskStoreError{Op: "get_output", Cause: scanErr}
	}
	return outputJSON, true, nil
}

// AreDependenciesComplete reports whether every id in depIDs has status
// "success".
func (s *Store) AreDependenciesComplete(ctx context.Context, runID string, depIDs []string) (bool, error) {
	if len(depIDs) == 0 {
		return true, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, depID := range depIDs {
		var status string
		row := s.db.QueryRowContext(ctx, `SELECT status FROM worker_runs WHERE run_id=? AND task_id=?`, runID, depID)
		if err := row.Scan(&status); err != nil {
			if err == sql.ErrNoRows {
				return false, nil
			}
			return false, &engineerr.TaskStoreError{Op: "are_dependencies_complete", Cause: err}
		}
		if models.RunStatus(status) != models.RunSuccess {
			return false, nil
		}
	}
	return true, nil
}

// GetStatus returns the current status of (run_id, task_id), or ("", false)
// if no row exists yet.
func (s *Store) GetStatus(ctx context.Context, runID, taskID string) (models.RunStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var status string
	row := s.db.QueryRowContext(ctx, `SELECT status FROM worker_runs WHERE run_id=? AND task_id=?`, runID, taskID)
	if err := row.Scan(&status); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, &engineerr.TaskStoreError{Op: "get_status", Cause: err}
	}
	return models.RunStatus(status), true, nil
}

// GetRunSummary aggregates worker_runs for run_id into a RunSummary.
func (s *Store) GetRunSummary(ctx context.Context, runID string) (*models.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, agent_id, status, duration_ms FROM worker_runs WHERE run_id=?`, runID)
	if err != nil {
		return nil, &engineerr.TaskStoreError{Op: "get_run_summary", Cause: err}
	}
	defer rows.Close()

	summary := &models.RunSummary{Durations: map[string]int64{}}
	agentSeen := map[string]bool{}
	for rows.Next() {
		var taskID, agentID, status string
		var durationMS sql.NullInt64
		if err := rows.Scan(&taskID, &agentID, &status, &durationMS); err != nil {
			return nil, &engineerr.TaskStoreError{Op: "get_run_summary_scan", Cause: err}
		}
		summary.Total++
		switch models.RunStatus(status) {
		case models.RunSuccess:
			summary.Success++
		case models.RunFailed:
			summary.Failed++
		case models.RunRunning:
			summary.Running++
		}
		if !agentSeen[agentID] {
			agentSeen[agentID] = true
			summary.AgentsUsed = append(summary.AgentsUsed, agentID)
		}
		if durationMS.Valid {
			summary.Durations[taskID] = durationMS.Int64
		}
	}
	return summary, nil
}

// GetAllOutputs returns every task_outputs row for run_id, oldest first.
func (s *Store) GetAllOutputs(ctx context.Context, runID string) ([]models.TaskOutput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, task_id, agent_id, output_json, metadata_json, created_at FROM task_outputs WHERE run_id=? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, &engineerr.TaskStoreError{Op: "get_all_outputs", Cause: err}
	}
	defer rows.Close()

	var out []models.TaskOutput
	for rows.Next() {
		var o models.TaskOutput
		var createdAt string
		if err := rows.Scan(&o.RunID, &o.TaskID, &o.AgentID, &o.OutputJSON, &o.MetadataJSON, &createdAt); err != nil {
			return nil, &engineerr.TaskStoreError{Op: "get_all_outputs_scan", Cause: err}
		}
		if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
			o.CreatedAt = t
		}
		out = append(out, o)
	}
	return out, nil
}

// StorePlan persists a run's Stage 1 + Stage 2 enriched plan as JSON (the
// supplemental task_plans table — see SPEC_FULL.md §13.1).
func (s *Store) StorePlan(ctx context.Context, runID string, plan *models.Plan) error {
	b, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO task_plans (run_id, plan_json, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET plan_json=excluded.plan_json, created_at=excluded.created_at`,
		runID, string(b), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return &engineerr.TaskStoreError{Op: "store_plan", Cause: err}
	}
	return nil
}

// GetPlan loads a previously persisted plan for run_id, if any.
func (s *Store) GetPlan(ctx context.Context, runID string) (*models.Plan, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var planJSON string
	row := s.db.QueryRowContext(ctx, `SELECT plan_json FROM task_plans WHERE run_id=?`, runID)
	if err := row.Scan(&planJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, &engineerr.TaskStoreError{Op: "get_plan", Cause: err}
	}
	var plan models.Plan
	if err := json.Unmarshal([]byte(planJSON), &plan); err != nil {
		return nil, false, fmt.Errorf("unmarshal plan: %w", err)
	}
	return &plan, true, nil
}
