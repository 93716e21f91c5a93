// Package store provides the SQLite-backed implementation of core/store.Store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	corestore "github.com/kilianp07/diaguru/core/store"
	"github.com/kilianp07/diaguru/core/model"
)

// SQLiteStore persists captures, plan runs, plan actions and chunks to a
// SQLite database, one JSON-blob-per-row column alongside the columns
// needed for range queries.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `
	CREATE TABLE IF NOT EXISTS captures (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		planned_start INTEGER,
		planned_end INTEGER,
		record TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_captures_owner ON captures(owner_id);

	CREATE TABLE IF NOT EXISTS capture_chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		capture_id TEXT NOT NULL,
		start INTEGER NOT NULL,
		end INTEGER NOT NULL,
		record TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_capture ON capture_chunks(capture_id);

	CREATE TABLE IF NOT EXISTS plan_actions (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL,
		capture_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		record TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_actions_capture ON plan_actions(capture_id);

	CREATE TABLE IF NOT EXISTS plan_runs (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		record TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// GetCapture fetches a capture by id.
func (s *SQLiteStore) GetCapture(ctx context.Context, id string) (*model.Capture, error) {
	row := s.db.QueryRowContext(ctx, `SELECT record FROM captures WHERE id = ?`, id)
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, &corestore.NotFoundError{ID: id}
		}
		return nil, err
	}
	var c model.Capture
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("unmarshal capture %s: %w", id, err)
	}
	return &c, nil
}

// UpdateCapture upserts a capture, keeping planned_start/planned_end in
// sync for range queries.
func (s *SQLiteStore) UpdateCapture(ctx context.Context, c *model.Capture) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal capture %s: %w", c.ID, err)
	}
	var start, end sql.NullInt64
	if c.PlannedStart != nil {
		start = sql.NullInt64{Int64: c.PlannedStart.Unix(), Valid: true}
	}
	if c.PlannedEnd != nil {
		end = sql.NullInt64{Int64: c.PlannedEnd.Unix(), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO captures (id, owner_id, planned_start, planned_end, record)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			planned_start = excluded.planned_start,
			planned_end = excluded.planned_end,
			record = excluded.record
	`, c.ID, c.OwnerID, start, end, string(data))
	return err
}

// ListCapturesByOwner returns the owner's captures whose placement (if any)
// lies within [from, to]; unplaced captures (no planned_start) are always
// included since they have no range to bound.
func (s *SQLiteStore) ListCapturesByOwner(ctx context.Context, ownerID string, from, to time.Time) ([]*model.Capture, error) {
	query := `SELECT record FROM captures WHERE owner_id = ?`
	args := []any{ownerID}
	if !from.IsZero() {
		query += ` AND (planned_start IS NULL OR planned_start >= ?)`
		args = append(args, from.Unix())
	}
	if !to.IsZero() {
		query += ` AND (planned_end IS NULL OR planned_end <= ?)`
		args = append(args, to.Unix())
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Capture
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var c model.Capture
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("unmarshal capture: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// AppendPlanActions persists one or more audit actions.
func (s *SQLiteStore) AppendPlanActions(ctx context.Context, actions []model.PlanAction) error {
	if len(actions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO plan_actions (id, plan_id, capture_id, created_at, record) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, a := range actions {
		data, err := json.Marshal(a)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal plan action %s: %w", a.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, a.ID, a.PlanID, a.CaptureID, a.CreatedAt.Unix(), string(data)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveChunks replaces the persisted chunk set for a capture.
func (s *SQLiteStore) SaveChunks(ctx context.Context, captureID string, chunks []model.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM capture_chunks WHERE capture_id = ?`, captureID); err != nil {
		_ = tx.Rollback()
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO capture_chunks (capture_id, start, end, record) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, c := range chunks {
		data, err := json.Marshal(c)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal chunk: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, captureID, c.Start.Unix(), c.End.Unix(), string(data)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Chunks returns the persisted chunks for a capture, ordered by start.
func (s *SQLiteStore) Chunks(ctx context.Context, captureID string) ([]model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM capture_chunks WHERE capture_id = ? ORDER BY start`, captureID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Chunk
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var c model.Chunk
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("unmarshal chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveRunSummary persists the audit header for one scheduling request.
func (s *SQLiteStore) SaveRunSummary(ctx context.Context, run model.PlanRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal plan run %s: %w", run.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO plan_runs (id, owner_id, created_at, record) VALUES (?, ?, ?, ?)`,
		run.ID, run.OwnerID, run.CreatedAt.Unix(), string(data))
	return err
}
