package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/researchgraph/research"
	"github.com/smallnest/researchgraph/store"
)

// Options configures the SQLite database.
type Options struct {
	Path      string
	TableName string // Default "checkpoints" for checkpoint stores, "activity" for journals
}

// Open opens the database at path. SQLite allows a single writer, so the pool
// is limited to one connection.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// CheckpointStore implements research.CheckpointStore using SQLite.
type CheckpointStore struct {
	db        *sql.DB
	tableName string
}

var _ research.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore opens the database and creates the schema.
func NewCheckpointStore(opts Options) (*CheckpointStore, error) {
	db, err := Open(opts.Path)
	if err != nil {
		return nil, err
	}
	s, err := NewCheckpointStoreWithDB(context.Background(), db, opts.TableName)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewCheckpointStoreWithDB creates the schema in an open database.
func NewCheckpointStoreWithDB(ctx context.Context, db *sql.DB, tableName string) (*CheckpointStore, error) {
	if tableName == "" {
		tableName = "checkpoints"
	}
	s := &CheckpointStore{db: db, tableName: tableName}
	if err := s.InitSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (s *CheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			step INTEGER NOT NULL,
			state TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_run_id ON %s (run_id, step);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

// Save stores a checkpoint, replacing one with the same ID.
func (s *CheckpointStore) Save(ctx context.Context, checkpoint *research.Checkpoint) error {
	stateJSON, err := json.Marshal(checkpoint.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, run_id, stage, step, state, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			run_id = excluded.run_id,
			stage = excluded.stage,
			step = excluded.step,
			state = excluded.state,
			timestamp = excluded.timestamp
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		checkpoint.ID,
		checkpoint.RunID,
		string(checkpoint.Stage),
		checkpoint.Step,
		string(stateJSON),
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
		SELECT id, run_id, stage, step, state, timestamp
		FROM %s
		WHERE id = ?
	`, s.tableName)

	cp, err := scanCheckpoint(s.db.QueryRowContext(ctx, query, checkpointID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound(checkpointID)
		}
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return cp, nil
}

// List returns the checkpoints of a run ordered by step.
func (s *CheckpointStore) List(ctx context.Context, runID string) ([]*research.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, run_id, stage, step, state, timestamp
		FROM %s
		WHERE run_id = ?
		ORDER BY step ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, runID)
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
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, checkpointID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints of a run.
func (s *CheckpointStore) Clear(ctx context.Context, runID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE run_id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, runID); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row scanner) (*research.Checkpoint, error) {
	var (
		cp        research.Checkpoint
		stage     string
		stateJSON string
	)
	if err := row.Scan(&cp.ID, &cp.RunID, &stage, &cp.Step, &stateJSON, &cp.Timestamp); err != nil {
		return nil, err
	}
	cp.Stage = research.StageName(stage)
	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &cp, nil
}
