package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// It persists suspended-run checkpoints in a single-file database, so a
// pending human decision survives a process restart with zero operational
// setup. WAL mode is enabled for concurrent readers.
//
// Suitable for development and single-host deployments; use MySQLStore when
// multiple workers share checkpoints.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type SQLiteStore[S any] struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite-backed checkpoint store.
//
// The path is a database file location ("./incidents.db") or ":memory:" for
// an in-memory database useful in tests. The schema is created automatically
// on first use.
//
// Example:
//
//	st, err := store.NewSQLiteStore[MyState]("./runs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite supports a single writer; keep one connection to avoid
	// table-lock churn between Save and Delete.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	}

	s := &SQLiteStore[S]{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore[S]) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS suspended_runs (
			run_id     TEXT PRIMARY KEY,
			node_id    TEXT NOT NULL,
			state      TEXT NOT NULL,
			visits     TEXT NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			detail     TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		)`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save persists a checkpoint, replacing any prior checkpoint for the run.
func (s *SQLiteStore[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
	stateJSON, visitsJSON, detailJSON, err := encodeCheckpoint(cp)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO suspended_runs
			(run_id, node_id, state, visits, reason, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cp.RunID, cp.NodeID, stateJSON, visitsJSON, cp.Reason, detailJSON,
		cp.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.RunID, err)
	}
	return nil
}

// Load retrieves a run's checkpoint, or ErrNotFound.
func (s *SQLiteStore[S]) Load(ctx context.Context, runID string) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	row := s.db.QueryRowContext(ctx, `
		SELECT node_id, state, visits, reason, detail, created_at
		FROM suspended_runs WHERE run_id = ?`, runID)

	var nodeID, stateJSON, visitsJSON, reason, detailJSON, createdAt string
	if err := row.Scan(&nodeID, &stateJSON, &visitsJSON, &reason, &detailJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("load checkpoint %s: %w", runID, err)
	}

	return decodeCheckpoint[S](runID, nodeID, stateJSON, visitsJSON, reason, detailJSON, createdAt)
}

// Delete removes a run's checkpoint. Idempotent.
func (s *SQLiteStore[S]) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM suspended_runs WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", runID, err)
	}
	return nil
}

// List returns the suspended run IDs in sorted order.
func (s *SQLiteStore[S]) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id FROM suspended_runs ORDER BY run_id")
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore[S]) Close() error {
	return s.db.Close()
}

// encodeCheckpoint serializes the variable-width checkpoint columns.
func encodeCheckpoint[S any](cp Checkpoint[S]) (state, visits, detail string, err error) {
	stateBytes, err := json.Marshal(cp.State)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal state: %w", err)
	}
	visitsBytes, err := json.Marshal(cp.Visits)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal visits: %w", err)
	}
	if cp.Detail == nil {
		cp.Detail = map[string]interface{}{}
	}
	detailBytes, err := json.Marshal(cp.Detail)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal detail: %w", err)
	}
	return string(stateBytes), string(visitsBytes), string(detailBytes), nil
}

// decodeCheckpoint reverses encodeCheckpoint.
func decodeCheckpoint[S any](runID, nodeID, stateJSON, visitsJSON, reason, detailJSON, createdAt string) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	cp := Checkpoint[S]{RunID: runID, NodeID: nodeID, Reason: reason}
	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		return zero, fmt.Errorf("unmarshal state: %w", err)
	}
	if err := json.Unmarshal([]byte(visitsJSON), &cp.Visits); err != nil {
		return zero, fmt.Errorf("unmarshal visits: %w", err)
	}
	if err := json.Unmarshal([]byte(detailJSON), &cp.Detail); err != nil {
		return zero, fmt.Errorf("unmarshal detail: %w", err)
	}
	if len(cp.Detail) == 0 {
		cp.Detail = nil
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return zero, fmt.Errorf("parse created_at: %w", err)
	}
	cp.CreatedAt = ts
	return cp, nil
}
