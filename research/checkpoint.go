package research

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/researchgraph/activity"
)

// ErrNoCheckpointStore is returned by History when the pipeline was built
// without a checkpoint store.
var ErrNoCheckpointStore = errors.New("research: no checkpoint store configured")

// Checkpoint is a snapshot of the state taken after a stage finished.
type Checkpoint struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Stage     StageName `json:"stage"`
	Step      int       `json:"step"`
	State     State     `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckpointStore persists checkpoints.
type CheckpointStore interface {
	// Save stores a checkpoint, replacing one with the same ID.
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves a checkpoint by ID.
	Load(ctx context.Context, checkpointID string) (*Checkpoint, error)

	// List returns the checkpoints of a run ordered by step.
	List(ctx context.Context, runID string) ([]*Checkpoint, error)

	// Delete removes a checkpoint.
	Delete(ctx context.Context, checkpointID string) error

	// Clear removes all checkpoints of a run.
	Clear(ctx context.Context, runID string) error
}

// checkpoint saves s when a store is configured. A failed save is reported
// but never fails the run.
func (p *Pipeline) checkpoint(ctx context.Context, sc *runScope, stage StageName, s State) {
	if p.opts.Checkpoints == nil {
		return
	}
	sc.step++
	cp := &Checkpoint{
		ID:        uuid.NewString(),
		RunID:     sc.id,
		Stage:     stage,
		Step:      sc.step,
		State:     s.Clone(),
		Timestamp: time.Now(),
	}
	if err := p.opts.Checkpoints.Save(ctx, cp); err != nil {
		sc.logger.Warn("save checkpoint for %s: %v", stage, err)
		sc.emit(stage, activity.LevelWarning, "Checkpoint not saved: %v", err)
	}
}

// History returns the checkpoints recorded for runID.
func (p *Pipeline) History(ctx context.Context, runID string) ([]*Checkpoint, error) {
	if p.opts.Checkpoints == nil {
		return nil, ErrNoCheckpointStore
	}
	return p.opts.Checkpoints.List(ctx, runID)
}
