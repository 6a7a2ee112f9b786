package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/smallnest/researchgraph/research"
	"github.com/smallnest/researchgraph/store"
)

// CheckpointStore keeps one JSON file per checkpoint in a directory.
type CheckpointStore struct {
	path string
	mu   sync.RWMutex
}

var _ research.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates a store rooted at path, creating the directory
// if needed.
func NewCheckpointStore(path string) (*CheckpointStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &CheckpointStore{path: path}, nil
}

func (s *CheckpointStore) filename(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid checkpoint id %q", id)
	}
	return filepath.Join(s.path, id+".json"), nil
}

// Save writes checkpoint to <path>/<id>.json. The file is replaced
// atomically.
func (s *CheckpointStore) Save(_ context.Context, checkpoint *research.Checkpoint) error {
	filename, err := s.filename(checkpoint.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.path, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint by ID.
func (s *CheckpointStore) Load(_ context.Context, checkpointID string) (*research.Checkpoint, error) {
	filename, err := s.filename(checkpointID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return readCheckpoint(filename, checkpointID)
}

func readCheckpoint(filename, id string) (*research.Checkpoint, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.NotFound(id)
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp research.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint %s: %w", id, err)
	}
	return &cp, nil
}

// List returns the checkpoints of a run ordered by step.
func (s *CheckpointStore) List(_ context.Context, runID string) ([]*research.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	out := make([]*research.Checkpoint, 0)
	for _, cp := range all {
		if cp.RunID == runID {
			out = append(out, cp)
		}
	}
	store.SortByStep(out)
	return out, nil
}

func (s *CheckpointStore) readAll() ([]*research.Checkpoint, error) {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var out []*research.Checkpoint
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		cp, err := readCheckpoint(filepath.Join(s.path, name), strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Delete removes a checkpoint. Deleting a missing checkpoint is not an error.
func (s *CheckpointStore) Delete(_ context.Context, checkpointID string) error {
	filename, err := s.filename(checkpointID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(filename); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes all checkpoints of a run.
func (s *CheckpointStore) Clear(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readAll()
	if err != nil {
		return err
	}
	for _, cp := range all {
		if cp.RunID != runID {
			continue
		}
		if err := os.Remove(filepath.Join(s.path, cp.ID+".json")); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to clear checkpoints: %w", err)
		}
	}
	return nil
}
