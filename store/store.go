package store

import (
	"errors"
	"fmt"
	"sort"

	"github.com/smallnest/researchgraph/research"
)

// ErrNotFound is returned when a checkpoint does not exist.
var ErrNotFound = errors.New("checkpoint not found")

// NotFound wraps ErrNotFound with the missing checkpoint ID.
func NotFound(checkpointID string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, checkpointID)
}

// SortByStep orders checkpoints by step, then by timestamp.
func SortByStep(checkpoints []*research.Checkpoint) {
	sort.SliceStable(checkpoints, func(i, j int) bool {
		if checkpoints[i].Step != checkpoints[j].Step {
			return checkpoints[i].Step < checkpoints[j].Step
		}
		return checkpoints[i].Timestamp.Before(checkpoints[j].Timestamp)
	})
}
