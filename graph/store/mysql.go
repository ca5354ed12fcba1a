package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL implementation of Store[S] for deployments where
// multiple workers share the set of suspended runs: one process can suspend a
// workflow and a different process can resume it.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type MySQLStore[S any] struct {
	db *sql.DB
}

// NewMySQLStore opens a MySQL-backed checkpoint store.
//
// The DSN follows go-sql-driver format, e.g.
// "user:pass@tcp(db:3306)/workflows?parseTime=true". The schema is created
// automatically on first use.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	s := &MySQLStore[S]{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func (s *MySQLStore[S]) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS suspended_runs (
			run_id     VARCHAR(255) PRIMARY KEY,
			node_id    VARCHAR(255) NOT NULL,
			state      MEDIUMTEXT NOT NULL,
			visits     TEXT NOT NULL,
			reason     VARCHAR(255) NOT NULL DEFAULT '',
			detail     TEXT NOT NULL,
			created_at VARCHAR(64) NOT NULL
		)`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save persists a checkpoint, replacing any prior checkpoint for the run.
func (s *MySQLStore[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
	stateJSON, visitsJSON, detailJSON, err := encodeCheckpoint(cp)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO suspended_runs
			(run_id, node_id, state, visits, reason, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			node_id = VALUES(node_id),
			state = VALUES(state),
			visits = VALUES(visits),
			reason = VALUES(reason),
			detail = VALUES(detail),
			created_at = VALUES(created_at)`,
		cp.RunID, cp.NodeID, stateJSON, visitsJSON, cp.Reason, detailJSON,
		cp.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.RunID, err)
	}
	return nil
}

// Load retrieves a run's checkpoint, or ErrNotFound.
func (s *MySQLStore[S]) Load(ctx context.Context, runID string) (Checkpoint[S], error) {
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
func (s *MySQLStore[S]) Delete(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM suspended_runs WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", runID, err)
	}
	return nil
}

// List returns the suspended run IDs in sorted order.
func (s *MySQLStore[S]) List(ctx context.Context) ([]string, error) {
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

// Close releases the underlying connection pool.
func (s *MySQLStore[S]) Close() error {
	return s.db.Close()
}
