package memory

import (
	"context"
	"sync"

	"github.com/smallnest/researchgraph/research"
	"github.com/smallnest/researchgraph/store"
)

// CheckpointStore keeps checkpoints in process memory.
type CheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*research.Checkpoint
	byRun       map[string][]string
}

var _ research.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates an empty store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		checkpoints: make(map[string]*research.Checkpoint),
		byRun:       make(map[string][]string),
	}
}

// Save stores a copy of checkpoint.
func (s *CheckpointStore) Save(_ context.Context, checkpoint *research.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *checkpoint
	cp.State = checkpoint.State.Clone()
	if _, exists := s.checkpoints[cp.ID]; !exists {
		s.byRun[cp.RunID] = append(s.byRun[cp.RunID], cp.ID)
	}
	s.checkpoints[cp.ID] = &cp
	return nil
}

// Load retrieves a checkpoint by ID.
func (s *CheckpointStore) Load(_ context.Context, checkpointID string) (*research.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.checkpoints[checkpointID]
	if !ok {
		return nil, store.NotFound(checkpointID)
	}
	out := *cp
	out.State = cp.State.Clone()
	return &out, nil
}

// List returns the checkpoints of a run ordered by step.
func (s *CheckpointStore) List(_ context.Context, runID string) ([]*research.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*research.Checkpoint, 0, len(s.byRun[runID]))
	for _, id := range s.byRun[runID] {
		cp := *s.checkpoints[id]
		cp.State = s.checkpoints[id].State.Clone()
		out = append(out, &cp)
	}
	store.SortByStep(out)
	return out, nil
}

// Delete removes a checkpoint. Deleting a missing checkpoint is not an error.
func (s *CheckpointStore) Delete(_ context.Context, checkpointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp, ok := s.checkpoints[checkpointID]
	if !ok {
		return nil
	}
	delete(s.checkpoints, checkpointID)

	ids := s.byRun[cp.RunID]
	for i, id := range ids {
		if id == checkpointID {
			s.byRun[cp.RunID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byRun[cp.RunID]) == 0 {
		delete(s.byRun, cp.RunID)
	}
	return nil
}

// Clear removes all checkpoints of a run.
func (s *CheckpointStore) Clear(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byRun[runID] {
		delete(s.checkpoints, id)
	}
	delete(s.byRun, runID)
	return nil
}

// Len returns the number of stored checkpoints.
func (s *CheckpointStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checkpoints)
}
