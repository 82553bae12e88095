// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store is the Event Store of §6: a durable, append-only record
// of every Workflow Run and its events, queryable by workflow, status,
// and time. The default backend is the donor's pure-Go modernc.org/sqlite
// driver (registered as "sqlite3" by internal/sqlitedriver); the same
// *sql.DB-based API works unmodified against the MySQL/Postgres drivers
// also carried from the donor's go.mod, by opening with a different
// driver name and DSN.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/molaco/workflow-manager/internal/event"
	"github.com/molaco/workflow-manager/internal/log"
	_ "github.com/molaco/workflow-manager/internal/sqlitedriver"
)

// Status mirrors a Workflow Run's status column; kept as its own type
// rather than reusing eventbus.Status because the persisted vocabulary
// (§3) is {not-started, running, completed, failed} while the tree's
// per-node vocabulary omits not-started transitions that never reach
// storage.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Run is one row of the executions table (§6).
type Run struct {
	ID           string
	WorkflowID   string
	WorkflowName string
	Status       Status
	StartTime    time.Time
	EndTime      *time.Time
	ExitCode     *int
	BinaryPath   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LogEntry is one row of the execution_logs table: a persisted event
// tagged with its monotone per-run sequence number.
type LogEntry struct {
	ExecutionID string
	Sequence    int
	Timestamp   time.Time
	LogType     string
	LogData     string
}

// WorkflowStats is the per-workflow aggregate §4.5 requires (total runs,
// how many of each terminal status, mean duration).
type WorkflowStats struct {
	WorkflowID        string
	TotalRuns         int
	Completed         int
	Failed            int
	AvgDurationSeconds float64
}

// Store wraps a *sql.DB with the Event Store's query surface. It is safe
// for concurrent use; the only in-process coordination it adds over the
// database itself is a single store-wide mutex serializing
// sequence-number assignment in BatchInsertEvents (and so AppendEvent).
type Store struct {
	db      *sql.DB
	dialect dialect
	seqMu   sync.Mutex
	logger  *zap.Logger
}

// Open opens (creating if absent) a SQLite-backed Event Store at dsn and
// applies any pending migrations. WAL journaling is enabled so the TUI's
// "history list" can read concurrently with an in-flight run's writer.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dsn, err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if err := MigrateUp(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, dialect: dialectSQLite, logger: log.Logger()}, nil
}

// OpenDriver opens the Event Store against one of the optional
// relational backends (mysql, postgres) or sqlite3, applying that
// dialect's migrations. MySQL DSNs must enable multiStatements so
// multi-table migration files apply in one round trip.
func OpenDriver(ctx context.Context, driverName, dsn string) (*Store, error) {
	d, err := parseDialect(driverName)
	if err != nil {
		return nil, err
	}
	if d == dialectSQLite {
		return Open(ctx, dsn)
	}

	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s (%s): %w", dsn, driverName, err)
	}
	if err := migrateUp(ctx, db, d); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, dialect: d, logger: log.Logger()}, nil
}

// q rebinds a ?-placeholder query for the active dialect.
func (s *Store) q(query string) string { return s.dialect.rebind(query) }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// InsertRun records a new Workflow Run.
func (s *Store) InsertRun(ctx context.Context, r Run) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO executions
			(id, workflow_id, workflow_name, status, start_time, end_time, exit_code, binary_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.WorkflowID, r.WorkflowName, string(r.Status), r.StartTime,
		nullTime(r.EndTime), nullInt(r.ExitCode), r.BinaryPath, now, now,
	)
	if err != nil {
		return fmt.Errorf("store: insert run %s: %w", r.ID, err)
	}
	return nil
}

// UpdateRunStatus transitions a run's status and bumps updated_at.
func (s *Store) UpdateRunStatus(ctx context.Context, runID string, status Status) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE executions SET status = ?, updated_at = ? WHERE id = ?`),
		string(status), time.Now(), runID)
	if err != nil {
		return fmt.Errorf("store: update run status %s: %w", runID, err)
	}
	return nil
}

// UpdateRunEndTimeAndExitCode records a run's terminal end time and exit
// code together, since both are only known once the run finishes.
func (s *Store) UpdateRunEndTimeAndExitCode(ctx context.Context, runID string, end time.Time, exitCode int) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE executions SET end_time = ?, exit_code = ?, updated_at = ? WHERE id = ?`),
		end, exitCode, time.Now(), runID)
	if err != nil {
		return fmt.Errorf("store: update run end/exit %s: %w", runID, err)
	}
	return nil
}

// InsertParams records the input parameter map a run was started with.
func (s *Store) InsertParams(ctx context.Context, runID string, params map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin insert params: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO execution_params (execution_id, name, value) VALUES (?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("store: prepare insert params: %w", err)
	}
	defer stmt.Close()

	for name, value := range params {
		if _, err := stmt.ExecContext(ctx, runID, name, value); err != nil {
			return fmt.Errorf("store: insert param %s for %s: %w", name, runID, err)
		}
	}
	return tx.Commit()
}

// AppendEvent persists one event under the next monotone sequence number
// for runID. It satisfies eventbus.Store.
func (s *Store) AppendEvent(ctx context.Context, runID string, e event.Event) error {
	return s.BatchInsertEvents(ctx, runID, []event.Event{e})
}

// BatchInsertEvents persists several events for one run atomically,
// assigning each the next monotone sequence number in order.
func (s *Store) BatchInsertEvents(ctx context.Context, runID string, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin batch insert events: %w", err)
	}
	defer tx.Rollback()

	var next int
	row := tx.QueryRowContext(ctx, s.q(`SELECT COALESCE(MAX(sequence), -1) + 1 FROM execution_logs WHERE execution_id = ?`), runID)
	if err := row.Scan(&next); err != nil {
		return fmt.Errorf("store: compute next sequence for %s: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO execution_logs (execution_id, sequence, timestamp, log_type, log_data) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("store: prepare insert event: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i, e := range events {
		data, err := e.Marshal()
		if err != nil {
			return fmt.Errorf("store: marshal event: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, next+i, now, string(e.Type), string(data)); err != nil {
			return fmt.Errorf("store: insert event seq %d for %s: %w", next+i, runID, err)
		}
	}
	return tx.Commit()
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, workflow_id, workflow_name, status, start_time, end_time, exit_code, binary_path, created_at, updated_at
		FROM executions WHERE id = ?`), runID)
	return scanRun(row)
}

// QueryByRun returns every persisted event for a run in sequence order.
func (s *Store) QueryByRun(ctx context.Context, runID string) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT execution_id, sequence, timestamp, log_type, log_data
		FROM execution_logs WHERE execution_id = ? ORDER BY sequence ASC`), runID)
	if err != nil {
		return nil, fmt.Errorf("store: query by run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var le LogEntry
		if err := rows.Scan(&le.ExecutionID, &le.Sequence, &le.Timestamp, &le.LogType, &le.LogData); err != nil {
			return nil, fmt.Errorf("store: scan log entry: %w", err)
		}
		out = append(out, le)
	}
	return out, rows.Err()
}

// QueryByStatus returns every run currently in the given status, most
// recently started first.
func (s *Store) QueryByStatus(ctx context.Context, status Status) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, workflow_id, workflow_name, status, start_time, end_time, exit_code, binary_path, created_at, updated_at
		FROM executions WHERE status = ? ORDER BY start_time DESC`), string(status))
	if err != nil {
		return nil, fmt.Errorf("store: query by status %s: %w", status, err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// PaginateRuns returns up to limit runs starting at offset, most recently
// started first.
func (s *Store) PaginateRuns(ctx context.Context, limit, offset int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, workflow_id, workflow_name, status, start_time, end_time, exit_code, binary_path, created_at, updated_at
		FROM executions ORDER BY start_time DESC LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: paginate runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// DeleteRunsBefore removes every run (and, via cascade, its params and
// logs) that started before cutoff, returning the number deleted.
func (s *Store) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM executions WHERE start_time < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: delete runs before %s: %w", cutoff, err)
	}
	return res.RowsAffected()
}

// WorkflowStats computes the per-workflow aggregate: total runs, terminal
// status counts, and mean duration across runs that have an end_time.
func (s *Store) WorkflowStats(ctx context.Context, workflowID string) (WorkflowStats, error) {
	stats := WorkflowStats{WorkflowID: workflowID}
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT
			COUNT(*),
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
			COALESCE(AVG(CASE WHEN end_time IS NOT NULL
				THEN `+s.dialect.durationSecondsExpr()+` END), 0)
		FROM executions WHERE workflow_id = ?`), workflowID)
	if err := row.Scan(&stats.TotalRuns, &stats.Completed, &stats.Failed, &stats.AvgDurationSeconds); err != nil {
		return stats, fmt.Errorf("store: workflow stats %s: %w", workflowID, err)
	}
	return stats, nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var out []Run
	for rows.Next() {
		r, err := scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	return scanRunRow(row)
}

func scanRunRow(row rowScanner) (Run, error) {
	var r Run
	var status string
	var endTime sql.NullTime
	var exitCode sql.NullInt64
	if err := row.Scan(&r.ID, &r.WorkflowID, &r.WorkflowName, &status, &r.StartTime, &endTime, &exitCode, &r.BinaryPath, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return r, fmt.Errorf("store: scan run: %w", err)
	}
	r.Status = Status(status)
	if endTime.Valid {
		r.EndTime = &endTime.Time
	}
	if exitCode.Valid {
		v := int(exitCode.Int64)
		r.ExitCode = &v
	}
	return r, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
