package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/researchgraph/research"
	"github.com/smallnest/researchgraph/store"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Options configures the Postgres connection.
type Options struct {
	ConnString string
	TableName  string // Default "checkpoints" for checkpoint stores, "documents" for searchers
}

// Connect opens a connection pool.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return pool, nil
}

// CheckpointStore implements research.CheckpointStore using PostgreSQL.
type CheckpointStore struct {
	pool      DBPool
	tableName string
}

var _ research.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore connects to Postgres and returns a checkpoint store.
// Call InitSchema before first use.
func NewCheckpointStore(ctx context.Context, opts Options) (*CheckpointStore, error) {
	pool, err := Connect(ctx, opts.ConnString)
	if err != nil {
		return nil, err
	}
	return NewCheckpointStoreWithPool(pool, opts.TableName), nil
}

// NewCheckpointStoreWithPool creates a checkpoint store over an existing pool.
func NewCheckpointStoreWithPool(pool DBPool, tableName string) *CheckpointStore {
	if tableName == "" {
		tableName = "checkpoints"
	}
	return &CheckpointStore{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *CheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			step INTEGER NOT NULL,
			state JSONB NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_run_id ON %s (run_id, step);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *CheckpointStore) Close() {
	s.pool.Close()
}

// Save stores a checkpoint, replacing one with the same ID.
func (s *CheckpointStore) Save(ctx context.Context, checkpoint *research.Checkpoint) error {
	stateJSON, err := json.Marshal(checkpoint.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, run_id, stage, step, state, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			stage = EXCLUDED.stage,
			step = EXCLUDED.step,
			state = EXCLUDED.state,
			timestamp = EXCLUDED.timestamp
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		checkpoint.ID,
		checkpoint.RunID,
		string(checkpoint.Stage),
		checkpoint.Step,
		stateJSON,
		checkpoint.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by ID
func (s *CheckpointStore) Load(ctx context.Context, checkpointID string) (*research.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, run_id, stage, step, state, timestamp FROM %s WHERE id = $1
	`, s.tableName)

	cp, err := scanCheckpoint(s.pool.QueryRow(ctx, query, checkpointID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.NotFound(checkpointID)
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return cp, nil
}

// List returns the checkpoints of a run ordered by step.
func (s *CheckpointStore) List(ctx context.Context, runID string) ([]*research.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, run_id, stage, step, state, timestamp FROM %s WHERE run_id = $1 ORDER BY step ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := []*research.Checkpoint{}
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoint rows: %w", err)
	}
	return checkpoints, nil
}

// Delete removes a checkpoint
func (s *CheckpointStore) Delete(ctx context.Context, checkpointID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, checkpointID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints of a run.
func (s *CheckpointStore) Clear(ctx context.Context, runID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE run_id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, runID); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}

func scanCheckpoint(row pgx.Row) (*research.Checkpoint, error) {
	var (
		cp        research.Checkpoint
		stage     string
		stateJSON []byte
	)
	if err := row.Scan(&cp.ID, &cp.RunID, &stage, &cp.Step, &stateJSON, &cp.Timestamp); err != nil {
		return nil, err
	}
	cp.Stage = research.StageName(stage)
	if err := json.Unmarshal(stateJSON, &cp.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &cp, nil
}
